package storage

import (
	"fmt"
	"strings"
)

// TrackFileName builds the on-disk name for a downloaded track:
// zero-padded two-digit track number, sanitized title, and the
// extension of the tier that was actually obtained.
func TrackFileName(trackNumber int, title, ext string) string {
	return fmt.Sprintf("%02d - %s%s", trackNumber, Sanitize(title), ParseExtension(ext))
}

// ParseExtension parses an extension string, ensuring it starts with a dot
func ParseExtension(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
