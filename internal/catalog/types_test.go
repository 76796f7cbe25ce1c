package catalog

import (
	"encoding/json"
	"testing"
)

func TestFlexInt64_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{"bare number", `12345`, 12345, false},
		{"quoted number", `"12345"`, 12345, false},
		{"zero", `0`, 0, false},
		{"quoted zero", `"0"`, 0, false},
		{"negative quoted", `"-7"`, -7, false},
		{"empty string", `""`, 0, false},
		{"null", `null`, 0, false},
		{"garbage string", `"abc"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexInt64
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) expected error, got %d", tt.input, v)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if int64(v) != tt.expected {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, v, tt.expected)
			}
		})
	}
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain string", `"hello"`, "hello"},
		{"bare integer", `42`, "42"},
		{"bare float keeps digits", `1.5`, "1.5"},
		{"large id stays exact", `123456789012345678`, "123456789012345678"},
		{"empty string", `""`, ""},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexString
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if string(v) != tt.expected {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, v, tt.expected)
			}
		})
	}
}

func TestFlexFloat_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"bare float", `-3.25`, -3.25},
		{"quoted float", `"-3.25"`, -3.25},
		{"bare integer", `11`, 11},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexFloat
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if float64(v) != tt.expected {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, v, tt.expected)
			}
		})
	}
}

func TestFlexBool_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"true literal", `true`, true},
		{"false literal", `false`, false},
		{"string one", `"1"`, true},
		{"string zero", `"0"`, false},
		{"string true", `"true"`, true},
		{"bare one", `1`, true},
		{"bare zero", `0`, false},
		{"empty string", `""`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexBool
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
			}
			if bool(v) != tt.expected {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, v, tt.expected)
			}
		})
	}
}

func TestRecordTypeFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"0", "single"},
		{"1", "album"},
		{"2", "compile"},
		{"3", "ep"},
		{"EP", "ep"},
		{"album", "album"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := recordTypeFromCode(tt.code); got != tt.expected {
			t.Errorf("recordTypeFromCode(%q) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}

func TestParseGatewayError(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantNil  bool
		wantCode string
	}{
		{"empty array", `[]`, true, ""},
		{"empty object", `{}`, true, ""},
		{"null", `null`, true, ""},
		{"empty", ``, true, ""},
		{"object form", `{"VALID_TOKEN_REQUIRED":"Invalid CSRF token"}`, false, "VALID_TOKEN_REQUIRED"},
		{"array form", `["DATA_ERROR"]`, false, "DATA_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseGatewayError("test.method", json.RawMessage(tt.raw))
			if tt.wantNil {
				if got != nil {
					t.Fatalf("parseGatewayError(%q) = %v, want nil", tt.raw, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("parseGatewayError(%q) = nil, want code %q", tt.raw, tt.wantCode)
			}
			if got.Code != tt.wantCode {
				t.Errorf("parseGatewayError(%q).Code = %q, want %q", tt.raw, got.Code, tt.wantCode)
			}
		})
	}
}

func TestProtocolError_TokenExpired(t *testing.T) {
	tests := []struct {
		name     string
		err      ProtocolError
		expected bool
	}{
		{"token code", ProtocolError{Code: "VALID_TOKEN_REQUIRED"}, true},
		{"csrf message", ProtocolError{Code: "GATEWAY_ERROR", Message: "Invalid CSRF token"}, true},
		{"unrelated", ProtocolError{Code: "DATA_ERROR", Message: "no data"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.tokenExpired(); got != tt.expected {
				t.Errorf("tokenExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}
