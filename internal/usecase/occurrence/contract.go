package occurrence

import (
	"context"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	domocc "github.com/kailas-cloud/crossref/internal/domain/occurrence"
)

// Store looks up and tags recorded occurrences of a correlation value.
type Store interface {
	FindOccurrences(ctx context.Context, t attribute.Type, value string) ([]domocc.Occurrence, error)
	SetKnownStatus(ctx context.Context, t attribute.Type, value, caseUUID string, status domain.KnownStatus) (int, error)
}
