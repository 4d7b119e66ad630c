package crossref

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/domain/policy"
)

var allChecks = []policy.Check{policy.CheckNotable, policy.CheckPreviouslySeen, policy.CheckUnique}

// Lookup returns the occurrences of value outside excludeCase and how the
// value would be classified by every check. typeName is a correlation type
// name ("files", "email", "mac", ...) or its numeric id.
func (c *Client) Lookup(ctx context.Context, typeName, value, excludeCase string) (res LookupResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("lookup", start, err) }()

	t, normalized, err := parseValue(typeName, value)
	if err != nil {
		return LookupResult{}, err
	}
	occs, err := c.occSvc.FindInCases(ctx, t, normalized, excludeCase)
	if err != nil {
		return LookupResult{}, err
	}
	return buildLookupResult(t, normalized, occs), nil
}

// Tag sets the known status ("unknown", "known" or "bad") of every instance
// of value recorded by caseUUID. Returns the number of instances updated.
func (c *Client) Tag(ctx context.Context, typeName, value, caseUUID, status string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag", start, err) }()

	t, err := attribute.ParseType(typeName)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	known, err := domain.ParseKnownStatus(status)
	if err != nil {
		return 0, err
	}
	return c.occSvc.Tag(ctx, t, value, caseUUID, known)
}

// Types returns the enabled flag of every configured correlation type by name.
func (c *Client) Types(ctx context.Context) (types map[string]bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("types", start, err) }()

	enabled, err := c.repo.CorrelationTypes(ctx)
	if err != nil {
		return nil, err
	}
	types = make(map[string]bool, len(enabled))
	for t, on := range enabled {
		types[t.String()] = on
	}
	return types, nil
}

// SetTypeEnabled enables or disables correlation of a type. Jobs started
// afterwards pick up the change.
func (c *Client) SetTypeEnabled(ctx context.Context, typeName string, enabled bool) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("set_type", start, err) }()

	t, err := attribute.ParseType(typeName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return c.repo.SetTypeEnabled(ctx, t, enabled)
}

func parseValue(typeName, value string) (attribute.Type, string, error) {
	t, err := attribute.ParseType(typeName)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	normalized, err := attribute.Normalize(t, value)
	if err != nil {
		return 0, "", err
	}
	return t, normalized, nil
}

func buildLookupResult(t attribute.Type, value string, occs []occurrence.Occurrence) LookupResult {
	res := LookupResult{
		Type:        t.String(),
		Value:       value,
		Cases:       len(occurrence.CollapseByCase(occs)),
		Occurrences: make([]Occurrence, 0, len(occs)),
		Outcomes:    []Outcome{},
	}
	for _, o := range occs {
		res.Occurrences = append(res.Occurrences, Occurrence{
			CaseUUID:    o.CaseUUID(),
			CaseName:    o.CaseDisplayName(),
			KnownStatus: string(o.KnownStatus()),
		})
	}
	for _, out := range policy.Evaluate(allChecks, t, occs) {
		res.Outcomes = append(res.Outcomes, Outcome{
			Kind:      string(out.Kind()),
			Score:     string(out.Score()),
			CaseNames: out.CaseNames(),
		})
	}
	return res
}
