package attribute

import (
	"fmt"

	"github.com/kailas-cloud/crossref/internal/domain"
)

// Attribute is a case-independent fact about an item (immutable value object).
type Attribute struct {
	typ             Type
	value           string
	caseUUID        string
	dataSourceObjID int64
	path            string
	knownStatus     domain.KnownStatus
	objectID        int64
}

// Source locates an attribute within a case.
type Source struct {
	CaseUUID        string
	DataSourceObjID int64
	Path            string
	ObjectID        int64
	KnownStatus     domain.KnownStatus
}

// New normalizes value and creates an Attribute.
// The error wraps domain.ErrNormalization.
func New(t Type, value string, src Source) (Attribute, error) {
	if !t.Valid() {
		return Attribute{}, domain.NewNormalizationError(t.String(), value, "unknown type")
	}
	normalized, err := Normalize(t, value)
	if err != nil {
		return Attribute{}, err
	}
	known := src.KnownStatus
	if known == "" {
		known = domain.KnownUnknown
	}
	return Attribute{
		typ:             t,
		value:           normalized,
		caseUUID:        src.CaseUUID,
		dataSourceObjID: src.DataSourceObjID,
		path:            src.Path,
		knownStatus:     known,
		objectID:        src.ObjectID,
	}, nil
}

// Reconstruct creates an Attribute without normalization (storage hydration).
func Reconstruct(t Type, value string, src Source) Attribute {
	return Attribute{
		typ:             t,
		value:           value,
		caseUUID:        src.CaseUUID,
		dataSourceObjID: src.DataSourceObjID,
		path:            src.Path,
		knownStatus:     src.KnownStatus,
		objectID:        src.ObjectID,
	}
}

// Type returns the correlation type.
func (a Attribute) Type() Type { return a.typ }

// Value returns the normalized value.
func (a Attribute) Value() string { return a.value }

// CaseUUID returns the owning case.
func (a Attribute) CaseUUID() string { return a.caseUUID }

// DataSourceObjID returns the owning data source object id.
func (a Attribute) DataSourceObjID() int64 { return a.dataSourceObjID }

// Path returns the path of the item within the data source.
func (a Attribute) Path() string { return a.path }

// KnownStatus returns the known status recorded with this instance.
func (a Attribute) KnownStatus() domain.KnownStatus { return a.knownStatus }

// ObjectID returns the id of the item the attribute was derived from.
func (a Attribute) ObjectID() int64 { return a.objectID }

// Key returns the canonical type:value form used for deduplication.
func (a Attribute) Key() string {
	return fmt.Sprintf("%d:%s", int(a.typ), a.value)
}

// WithSource returns a copy bound to the given case and data source.
func (a Attribute) WithSource(caseUUID string, dataSourceObjID int64) Attribute {
	c := a
	c.caseUUID = caseUUID
	c.dataSourceObjID = dataSourceObjID
	return c
}
