package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The gateway is loose with scalar types: numbers arrive as JSON
// numbers or quoted decimal strings depending on the method and the
// age of the record. The Flex types absorb both.

// FlexInt64 handles integer fields that may arrive quoted
type FlexInt64 int64

// UnmarshalJSON implements custom JSON unmarshaling for FlexInt64
func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("flex int %q: %w", s, err)
		}
		*f = FlexInt64(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}

// FlexString handles string fields that may arrive as bare numbers
type FlexString string

// UnmarshalJSON implements custom JSON unmarshaling for FlexString
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*f = FlexString(num.String())
	return nil
}

// FlexFloat handles float fields that may arrive quoted
type FlexFloat float64

// UnmarshalJSON implements custom JSON unmarshaling for FlexFloat
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("flex float %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexBool handles boolean fields that may arrive as "0"/"1" strings,
// numbers or real booleans
type FlexBool bool

// UnmarshalJSON implements custom JSON unmarshaling for FlexBool
func (f *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "" || s == "null":
		*f = false
	case s == "true" || s == "false":
		*f = s == "true"
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexBool(v == "1" || strings.EqualFold(v, "true"))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = n != 0
	}
	return nil
}
