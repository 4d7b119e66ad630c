package crossref

import (
	"errors"

	"github.com/kailas-cloud/crossref/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrInvalidInput     = domain.ErrInvalidInput
	ErrNormalization    = domain.ErrNormalization
	ErrNotConfigured    = domain.ErrNotConfigured
	ErrPlatformMismatch = domain.ErrPlatformMismatch
	ErrJobNotActive     = domain.ErrJobNotActive
	ErrStoreUnavailable = domain.ErrStoreUnavailable
)

// ErrNoCaseDB is returned by StartWorker when the client was built without
// a case database.
var ErrNoCaseDB = errors.New("crossref: case database not configured (use WithCaseDB)")
