package domain

import "fmt"

// KnownStatus is the known/notable status of a file or correlation instance.
type KnownStatus string

// Known status values.
const (
	KnownUnknown KnownStatus = "unknown"
	KnownGood    KnownStatus = "known"
	KnownBad     KnownStatus = "bad"
)

// ParseKnownStatus parses a known status; empty input means unknown.
func ParseKnownStatus(s string) (KnownStatus, error) {
	switch KnownStatus(s) {
	case "", KnownUnknown:
		return KnownUnknown, nil
	case KnownGood:
		return KnownGood, nil
	case KnownBad:
		return KnownBad, nil
	default:
		return "", fmt.Errorf("unknown known status %q: %w", s, ErrInvalidInput)
	}
}
