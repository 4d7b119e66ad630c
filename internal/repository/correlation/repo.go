// Package correlation maps the correlation store contract onto a key-value
// db.Store. The same layout serves the shared Redis/Valkey store and the
// embedded single-user store.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crossref/internal/db"
	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/datasource"
	"github.com/kailas-cloud/crossref/internal/domain/job"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/logger"
)

// DefaultBulkThreshold is the number of instances written per pipeline.
const DefaultBulkThreshold = 1000

// store is the consumer interface for the correlation store (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SAddMulti(ctx context.Context, items []db.SetAddItem) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

// Options configure a Repo.
type Options struct {
	KeyPrefix     string
	BulkThreshold int
	Platform      domain.Platform
}

// Repo implements the correlation store used by the ingest usecases.
type Repo struct {
	store         store
	prefix        string
	bulkThreshold int
	platform      domain.Platform

	caseNames sync.Map // case uuid -> display name
}

// New creates a correlation repository.
func New(s store, opts Options) *Repo {
	threshold := opts.BulkThreshold
	if threshold <= 0 {
		threshold = DefaultBulkThreshold
	}
	platform := opts.Platform
	if platform == "" {
		platform = domain.PlatformMultiUser
	}
	return &Repo{
		store:         s,
		prefix:        opts.KeyPrefix,
		bulkThreshold: threshold,
		platform:      platform,
	}
}

// Platform returns the deployment flavour of the underlying store.
func (r *Repo) Platform() domain.Platform { return r.platform }

// EnsureTypes seeds every known correlation type as enabled unless an
// operator already configured it.
func (r *Repo) EnsureTypes(ctx context.Context) error {
	for _, t := range attribute.AllTypes() {
		if _, err := r.store.SetNX(ctx, r.typeKey(t), []byte("1")); err != nil {
			return unavailable("seed type "+t.String(), err)
		}
	}
	return nil
}

// SetTypeEnabled enables or disables correlation of type t.
func (r *Repo) SetTypeEnabled(ctx context.Context, t attribute.Type, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	if err := r.store.Set(ctx, r.typeKey(t), []byte(v)); err != nil {
		return unavailable("set type "+t.String(), err)
	}
	return nil
}

// CorrelationTypes returns the enabled flag of every configured type.
// Types that were never seeded are absent from the map.
func (r *Repo) CorrelationTypes(ctx context.Context) (map[attribute.Type]bool, error) {
	out := make(map[attribute.Type]bool, len(attribute.AllTypes()))
	for _, t := range attribute.AllTypes() {
		v, err := r.store.Get(ctx, r.typeKey(t))
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, unavailable("get type "+t.String(), err)
		}
		out[t] = string(v) == "1"
	}
	return out, nil
}

// GetOrCreateCase registers c once. Reports whether this call created it.
func (r *Repo) GetOrCreateCase(ctx context.Context, c job.Case) (bool, error) {
	created, err := r.store.SetNX(ctx, r.caseKey(c.UUID), []byte(c.DisplayName))
	if err != nil {
		return false, unavailable("create case "+c.UUID, err)
	}
	if created {
		r.caseNames.Store(c.UUID, c.DisplayName)
	}
	return created, nil
}

// GetOrCreateDataSource registers ds under caseUUID once. The first writer
// also records the data source name, device id and hashes.
func (r *Repo) GetOrCreateDataSource(ctx context.Context, caseUUID string, ds datasource.DataSource) (bool, error) {
	if err := ds.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	created, err := r.store.SetNX(ctx, r.dataSourceKey(caseUUID, ds.ObjID), []byte(ds.Name))
	if err != nil {
		return false, unavailable("create data source", err)
	}
	if !created {
		return false, nil
	}

	fields := map[string]string{fieldDSName: ds.Name, fieldDSDevice: ds.DeviceID}
	for _, k := range datasource.HashKinds() {
		fields[string(k)] = ds.Hashes.Get(k)
	}
	if err := r.store.HSet(ctx, r.dataSourceInfoKey(caseUUID, ds.ObjID), fields); err != nil {
		return true, unavailable("record data source", err)
	}
	return true, nil
}

// DataSourceHashes returns the hashes mirrored for a data source.
func (r *Repo) DataSourceHashes(ctx context.Context, caseUUID string, objID int64) (datasource.Hashes, error) {
	m, err := r.store.HGetAll(ctx, r.dataSourceInfoKey(caseUUID, objID))
	if err != nil {
		return datasource.Hashes{}, unavailable("get data source hashes", err)
	}
	if len(m) == 0 {
		return datasource.Hashes{}, fmt.Errorf("data source %s/%d: %w", caseUUID, objID, domain.ErrNotFound)
	}
	var h datasource.Hashes
	for _, k := range datasource.HashKinds() {
		h = h.Set(k, m[string(k)])
	}
	return h, nil
}

// SetDataSourceHash overwrites one mirrored hash.
func (r *Repo) SetDataSourceHash(
	ctx context.Context, caseUUID string, objID int64, kind datasource.HashKind, value string,
) error {
	key := r.dataSourceInfoKey(caseUUID, objID)
	if err := r.store.HSet(ctx, key, map[string]string{string(kind): value}); err != nil {
		return unavailable("set data source "+string(kind), err)
	}
	return nil
}

// FindOccurrences returns every recorded instance of value, one occurrence
// per instance, across all cases.
func (r *Repo) FindOccurrences(ctx context.Context, t attribute.Type, value string) ([]occurrence.Occurrence, error) {
	normalized, err := attribute.Normalize(t, value)
	if err != nil {
		return nil, err
	}

	instances, err := r.instances(ctx, t, normalized)
	if err != nil {
		return nil, err
	}

	occs := make([]occurrence.Occurrence, 0, len(instances))
	for _, inst := range instances {
		caseUUID := inst[fieldCaseUUID]
		name, err := r.caseName(ctx, caseUUID)
		if err != nil {
			return nil, err
		}
		occs = append(occs, occurrence.New(caseUUID, name, domain.KnownStatus(inst[fieldKnown])))
	}
	return occs, nil
}

// SetKnownStatus tags every instance of (t, value) in caseUUID. Returns the
// number of instances updated; domain.ErrNotFound when there are none.
func (r *Repo) SetKnownStatus(
	ctx context.Context, t attribute.Type, value, caseUUID string, status domain.KnownStatus,
) (int, error) {
	normalized, err := attribute.Normalize(t, value)
	if err != nil {
		return 0, err
	}
	keys, err := r.store.SMembers(ctx, r.occurrenceKey(t, normalized))
	if err != nil {
		return 0, unavailable("find instances", err)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return 0, unavailable("read instances", err)
	}

	var items []db.HashSetItem
	for i, inst := range hashes {
		if inst[fieldCaseUUID] == caseUUID {
			items = append(items, db.HashSetItem{Key: keys[i], Fields: map[string]string{fieldKnown: string(status)}})
		}
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%s %q in case %s: %w", t, normalized, caseUUID, domain.ErrNotFound)
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, unavailable("tag instances", err)
	}
	return len(items), nil
}

// CommitBulk records attrs, pipelining bulkThreshold instances at a time.
// Values too long for the store are dropped with a warning. Returns the
// number of instances written.
func (r *Repo) CommitBulk(ctx context.Context, attrs []attribute.Attribute) (int, error) {
	log := logger.FromContext(ctx)
	written := 0

	for start := 0; start < len(attrs); start += r.bulkThreshold {
		end := min(start+r.bulkThreshold, len(attrs))

		hashes := make([]db.HashSetItem, 0, end-start)
		sets := make([]db.SetAddItem, 0, end-start)
		for _, a := range attrs[start:end] {
			if len(a.Value()) >= attribute.MaxValueLength {
				log.Warn("dropping correlation value over length limit",
					zap.String("attr_type", a.Type().String()),
					zap.Int("length", len(a.Value())),
					zap.Int64("object_id", a.ObjectID()),
				)
				continue
			}
			key := r.instanceKey(a)
			hashes = append(hashes, db.HashSetItem{
				Key:      key,
				Fields:   instanceFields(a),
				Defaults: map[string]string{fieldKnown: string(a.KnownStatus())},
			})
			sets = append(sets, db.SetAddItem{Key: r.occurrenceKey(a.Type(), a.Value()), Members: []string{key}})
		}
		if len(hashes) == 0 {
			continue
		}

		if err := r.store.HSetMulti(ctx, hashes); err != nil {
			return written, unavailable("write instances", err)
		}
		if err := r.store.SAddMulti(ctx, sets); err != nil {
			return written, unavailable("index instances", err)
		}
		written += len(hashes)
	}
	return written, nil
}

func (r *Repo) instances(ctx context.Context, t attribute.Type, value string) ([]map[string]string, error) {
	keys, err := r.store.SMembers(ctx, r.occurrenceKey(t, value))
	if err != nil {
		return nil, unavailable("find instances", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, unavailable("read instances", err)
	}

	out := hashes[:0]
	for _, h := range hashes {
		if h[fieldCaseUUID] != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

// caseName resolves the display name of a case, falling back to its uuid.
func (r *Repo) caseName(ctx context.Context, caseUUID string) (string, error) {
	if v, ok := r.caseNames.Load(caseUUID); ok {
		return v.(string), nil
	}
	raw, err := r.store.Get(ctx, r.caseKey(caseUUID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return caseUUID, nil
		}
		return "", unavailable("get case "+caseUUID, err)
	}
	name := string(raw)
	if name == "" {
		name = caseUUID
	}
	r.caseNames.Store(caseUUID, name)
	return name, nil
}

// instanceFields leaves out the known status: a re-commit must not undo a tag.
func instanceFields(a attribute.Attribute) map[string]string {
	return map[string]string{
		fieldType:     strconv.Itoa(int(a.Type())),
		fieldValue:    a.Value(),
		fieldCaseUUID: a.CaseUUID(),
		fieldDSObjID:  strconv.FormatInt(a.DataSourceObjID(), 10),
		fieldPath:     a.Path(),
		fieldObjectID: strconv.FormatInt(a.ObjectID(), 10),
	}
}

// unavailable classifies a store failure as ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
