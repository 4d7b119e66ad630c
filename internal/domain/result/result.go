// Package result models the analysis results posted to the blackboard.
package result

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/outcome"
)

// Type is the analysis result type.
type Type string

// Result types.
const (
	TypePreviouslyNotable Type = "previously_notable"
	TypePreviouslySeen    Type = "previously_seen"
	TypePreviouslyUnseen  Type = "previously_unseen"
)

// TypeFor maps an outcome kind to its result type.
func TypeFor(k outcome.Kind) (Type, bool) {
	switch k {
	case outcome.KindNotable:
		return TypePreviouslyNotable, true
	case outcome.KindSeen:
		return TypePreviouslySeen, true
	case outcome.KindUnseen:
		return TypePreviouslyUnseen, true
	default:
		return "", false
	}
}

// Attribute names.
const (
	AttrSetName          = "set_name"
	AttrCorrelationType  = "correlation_type"
	AttrCorrelationValue = "correlation_value"
	AttrOtherCases       = "other_cases"
)

// Attribute is one name/value pair of a result payload.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Digest returns a stable hash of attrs, independent of their order.
func Digest(attrs []Attribute) string {
	sorted := make([]Attribute, len(attrs))
	copy(sorted, attrs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Value < sorted[j].Value
	})

	var b strings.Builder
	for _, a := range sorted {
		fmt.Fprintf(&b, "%d:%s=%d:%s;", len(a.Name), a.Name, len(a.Value), a.Value)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Result is an analysis result attached to an item.
type Result struct {
	id            uuid.UUID
	objID         int64
	typ           Type
	score         outcome.Score
	justification string
	attributes    []Attribute
}

// New validates and creates a Result with a fresh id.
func New(objID int64, typ Type, score outcome.Score, justification string, attrs []Attribute) (Result, error) {
	if objID <= 0 {
		return Result{}, fmt.Errorf("object id must be positive: %w", domain.ErrInvalidInput)
	}
	switch typ {
	case TypePreviouslyNotable, TypePreviouslySeen, TypePreviouslyUnseen:
	default:
		return Result{}, fmt.Errorf("unknown result type %q: %w", typ, domain.ErrInvalidInput)
	}
	return Reconstruct(uuid.New(), objID, typ, score, justification, attrs), nil
}

// Reconstruct creates a Result from stored fields.
func Reconstruct(
	id uuid.UUID, objID int64, typ Type, score outcome.Score, justification string, attrs []Attribute,
) Result {
	cp := make([]Attribute, len(attrs))
	copy(cp, attrs)
	return Result{
		id:            id,
		objID:         objID,
		typ:           typ,
		score:         score,
		justification: justification,
		attributes:    cp,
	}
}

// ID returns the result id.
func (r Result) ID() uuid.UUID { return r.id }

// ObjID returns the id of the item the result is attached to.
func (r Result) ObjID() int64 { return r.objID }

// Type returns the result type.
func (r Result) Type() Type { return r.typ }

// Score returns the result score.
func (r Result) Score() outcome.Score { return r.score }

// Justification returns the human readable reason.
func (r Result) Justification() string { return r.justification }

// Attributes returns a copy of the payload.
func (r Result) Attributes() []Attribute {
	cp := make([]Attribute, len(r.attributes))
	copy(cp, r.attributes)
	return cp
}

// Digest returns the payload digest used for the existence check.
func (r Result) Digest() string { return Digest(r.attributes) }
