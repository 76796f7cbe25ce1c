package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrInvalidCredential means the session credential was rejected
	// outright (user id 0). Nothing recovers from this.
	ErrInvalidCredential = errors.New("session credential rejected")

	// ErrGeoRestricted marks a track blocked for the account's region.
	ErrGeoRestricted = errors.New("track not available in this region")

	// ErrLicenseRestricted marks a track above the account's license tier.
	ErrLicenseRestricted = errors.New("track not allowed by license tier")

	// ErrUnavailable marks a track with no source at the requested tier.
	ErrUnavailable = errors.New("track has no available source")

	// ErrArtistNotFound means search produced no candidate at all.
	ErrArtistNotFound = errors.New("artist not found")
)

// ProtocolError is a structured error answer from either API surface.
type ProtocolError struct {
	Method  string
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Method, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, e.Code, e.Message)
}

// tokenExpired reports whether the payload demands a fresh api token.
func (e *ProtocolError) tokenExpired() bool {
	return e.Code == "VALID_TOKEN_REQUIRED" || strings.Contains(strings.ToLower(e.Message), "csrf")
}

// isTransient classifies connection-level faults worth a blind retry:
// refused, reset or aborted connections and timeouts. Context
// cancellation is never transient.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"connection refused", "connection reset", "connection aborted", "broken pipe", "EOF"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
