package publish

import (
	"context"

	"github.com/google/uuid"

	"github.com/kailas-cloud/crossref/internal/domain/inbox"
	"github.com/kailas-cloud/crossref/internal/domain/result"
)

// Blackboard stores analysis results for the case.
type Blackboard interface {
	Exists(ctx context.Context, objID int64, typ result.Type, attrs []result.Attribute) (bool, error)
	Create(ctx context.Context, res result.Result) error
	Post(ctx context.Context, id uuid.UUID, moduleName string, jobID int64) error
}

// Notifier delivers inbox messages to the examiner.
type Notifier interface {
	PostMessage(ctx context.Context, msg inbox.Message) error
}
