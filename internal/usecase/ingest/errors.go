package ingest

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/crossref/internal/domain"
)

// StartupError is a fatal job startup failure. Message is meant for the
// operator; Err keeps the cause for errors.Is.
type StartupError struct {
	JobID   int64
	Message string
	Err     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("job %d: %s: %v", e.JobID, e.Message, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

func newStartupError(jobID int64, err error) *StartupError {
	var se *StartupError
	if errors.As(err, &se) {
		return se
	}
	return &StartupError{JobID: jobID, Message: startupMessage(err), Err: err}
}

func startupMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return "the files correlation type is disabled in the central repository"
	case errors.Is(err, domain.ErrPlatformMismatch):
		return "multi-user cases need a shared central repository, the configured store is single-user"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "cannot connect to the central repository"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid job parameters"
	default:
		return "failed to register the case and data source in the central repository"
	}
}
