// Package casedb implements the blackboard and data source lookups on the
// PostgreSQL case database.
package casedb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/result"
)

const pgDuplicateKeyCode = "23505"

// querier is the consumer interface for the connection pool (ISP).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	existsSQL = `SELECT EXISTS (
		SELECT 1 FROM analysis_results
		WHERE obj_id = $1 AND result_type = $2 AND attributes_digest = $3)`

	insertSQL = `INSERT INTO analysis_results
		(id, obj_id, result_type, score, justification, attributes, attributes_digest)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	postSQL = `UPDATE analysis_results
		SET module_name = $2, job_id = $3, posted_at = now()
		WHERE id = $1`

	dataSourceSQL = `SELECT obj_id, name, type, device_id, md5, sha1, sha256
		FROM data_sources WHERE obj_id = $1`

	upsertDataSourceSQL = `INSERT INTO data_sources (obj_id, name, type, device_id, md5, sha1, sha256)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		ON CONFLICT (obj_id) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, device_id = EXCLUDED.device_id,
			md5 = EXCLUDED.md5, sha1 = EXCLUDED.sha1, sha256 = EXCLUDED.sha256`
)

// Repo implements the blackboard and case data source reader.
type Repo struct {
	q querier
}

// New creates a case database repository.
func New(q querier) *Repo {
	return &Repo{q: q}
}

// Exists reports whether an equivalent result is already attached to objID.
func (r *Repo) Exists(ctx context.Context, objID int64, typ result.Type, attrs []result.Attribute) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, existsSQL, objID, string(typ), result.Digest(attrs)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check result exists: %w", err)
	}
	return exists, nil
}

// Create stores res. A result with the same identity yields domain.ErrPublishConflict.
func (r *Repo) Create(ctx context.Context, res result.Result) error {
	payload, err := json.Marshal(res.Attributes())
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = r.q.Exec(ctx, insertSQL,
		res.ID(), res.ObjID(), string(res.Type()), string(res.Score()),
		res.Justification(), payload, res.Digest(),
	)
	if err != nil {
		return mapError(fmt.Errorf("create result: %w", err))
	}
	return nil
}

// Post marks a created result as posted by moduleName for jobID.
func (r *Repo) Post(ctx context.Context, id uuid.UUID, moduleName string, jobID int64) error {
	tag, err := r.q.Exec(ctx, postSQL, id, moduleName, jobID)
	if err != nil {
		return fmt.Errorf("post result %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post result %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DataSource returns the case database record of a data source.
func (r *Repo) DataSource(ctx context.Context, objID int64) (datasource.DataSource, error) {
	var (
		ds                datasource.DataSource
		typ               string
		md5, sha1, sha256 *string
	)
	err := r.q.QueryRow(ctx, dataSourceSQL, objID).
		Scan(&ds.ObjID, &ds.Name, &typ, &ds.DeviceID, &md5, &sha1, &sha256)
	if err != nil {
		return datasource.DataSource{}, mapError(fmt.Errorf("get data source %d: %w", objID, err))
	}
	ds.Type = datasource.Type(typ)
	ds.Hashes = datasource.Hashes{MD5: deref(md5), SHA1: deref(sha1), SHA256: deref(sha256)}
	return ds, nil
}

// SaveDataSource inserts or replaces a data source record. Empty hashes are
// stored as NULL.
func (r *Repo) SaveDataSource(ctx context.Context, ds datasource.DataSource) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	typ := ds.Type
	if typ == "" {
		typ = datasource.TypeImage
	}
	_, err := r.q.Exec(ctx, upsertDataSourceSQL,
		ds.ObjID, ds.Name, string(typ), ds.DeviceID, ds.Hashes.MD5, ds.Hashes.SHA1, ds.Hashes.SHA256,
	)
	if err != nil {
		return fmt.Errorf("save data source %d: %w", ds.ObjID, err)
	}
	return nil
}

// mapError translates driver errors to domain errors.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode {
		return fmt.Errorf("%w: %w", domain.ErrPublishConflict, err)
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
