package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable signals that the correlation store cannot be reached.
	ErrStoreUnavailable = errors.New("correlation store unavailable")
	// ErrNormalization signals an attribute value that cannot be normalized.
	ErrNormalization = errors.New("attribute normalization failed")
	// ErrNotConfigured signals a required correlation type that is missing or disabled.
	ErrNotConfigured = errors.New("correlation type not configured")
	// ErrPlatformMismatch signals a multi-user job paired with a single-user store backend.
	ErrPlatformMismatch = errors.New("platform mismatch")
	// ErrPublishConflict signals that an equivalent analysis result already exists.
	// It is a no-op signal, not a failure.
	ErrPublishConflict = errors.New("analysis result already exists")
	// ErrJobNotActive signals a hook call for a job that has no running workers.
	ErrJobNotActive = errors.New("job not active")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)

// NormalizationError wraps ErrNormalization with the offending type and value.
type NormalizationError struct {
	Type   string
	Value  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("%s: %s value %q: %s", ErrNormalization.Error(), e.Type, e.Value, e.Reason)
}

func (e *NormalizationError) Unwrap() error { return ErrNormalization }

// NewNormalizationError creates a normalization error.
func NewNormalizationError(typeName, value, reason string) error {
	return &NormalizationError{Type: typeName, Value: value, Reason: reason}
}
