package ingest

import (
	"context"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/usecase/publish"
)

// CorrelationStore is the part of the correlation store used for job setup
// and the final flush.
type CorrelationStore interface {
	Platform() domain.Platform
	CorrelationTypes(ctx context.Context) (map[attribute.Type]bool, error)
	GetOrCreateCase(ctx context.Context, c job.Case) (bool, error)
	GetOrCreateDataSource(ctx context.Context, caseUUID string, ds datasource.DataSource) (bool, error)
	CommitBulk(ctx context.Context, attrs []attribute.Attribute) (int, error)
}

// OccurrenceFinder looks up occurrences of an attribute in other cases.
type OccurrenceFinder interface {
	Find(ctx context.Context, a attribute.Attribute) ([]occurrence.Occurrence, error)
}

// Publisher creates analysis results for classification outcomes.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request) (bool, error)
}

// HashSyncer reconciles data source hashes after the flush.
type HashSyncer interface {
	Run(ctx context.Context, j job.Job) ([]datasource.HashKind, error)
}

// CaseDataSources reads the job's data source from the case database.
type CaseDataSources interface {
	DataSource(ctx context.Context, objID int64) (datasource.DataSource, error)
}
