package domain

import "fmt"

// Quality is a requested audio quality tier.
type Quality string

const (
	QualityFLAC   Quality = "flac"
	QualityMP3320 Quality = "mp3_320"
	QualityMP3128 Quality = "mp3_128"
)

// ParseQuality validates a quality string from config or an API request.
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case QualityFLAC, QualityMP3320, QualityMP3128:
		return Quality(s), nil
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// Code returns the numeric format code used by the legacy URL scheme.
func (q Quality) Code() int {
	switch q {
	case QualityFLAC:
		return 9
	case QualityMP3320:
		return 3
	case QualityMP3128:
		return 1
	}
	return 0
}

// Format returns the format name used by the media URL endpoint.
func (q Quality) Format() string {
	switch q {
	case QualityFLAC:
		return "FLAC"
	case QualityMP3320:
		return "MP3_320"
	case QualityMP3128:
		return "MP3_128"
	}
	return ""
}

// Ext returns the file extension written for this tier.
func (q Quality) Ext() string {
	if q == QualityFLAC {
		return ".flac"
	}
	return ".mp3"
}

// FallbackOrder returns the tiers to try for a requested quality:
// the request itself, then 320kbps, then 128kbps, without repeats.
func FallbackOrder(q Quality) []Quality {
	order := []Quality{q}
	for _, fb := range []Quality{QualityMP3320, QualityMP3128} {
		if fb != q {
			order = append(order, fb)
		}
	}
	return order
}
