package hashsync

import (
	"context"

	"github.com/kailas-cloud/crossref/internal/domain/datasource"
)

// CaseDataSources reads data source records from the case database.
type CaseDataSources interface {
	DataSource(ctx context.Context, objID int64) (datasource.DataSource, error)
}

// Store reads and writes the hashes mirrored in the correlation store.
type Store interface {
	DataSourceHashes(ctx context.Context, caseUUID string, objID int64) (datasource.Hashes, error)
	SetDataSourceHash(ctx context.Context, caseUUID string, objID int64, kind datasource.HashKind, value string) error
}
