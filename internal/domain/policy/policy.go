// Package policy classifies a correlation value from its prior occurrences.
//
// Classification is a pure function of the check, the attribute type and the
// occurrences in other cases. The occurrence count is the number of distinct
// other cases the value was seen in.
package policy

import (
	"fmt"

	"github.com/kailas-cloud/crossref/internal/domain/attribute"
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
	"github.com/kailas-cloud/crossref/internal/domain/outcome"
)

// Occurrence count thresholds for the previously-seen check.
const (
	MaxLikelyNotableOccurrences = 10
	MaxSeenOccurrences          = 20
)

// Check is one independently enabled classification.
type Check string

// Checks.
const (
	CheckNotable        Check = "notable"
	CheckPreviouslySeen Check = "previously_seen"
	CheckUnique         Check = "unique"
)

// ParseCheck parses a check name.
func ParseCheck(s string) (Check, error) {
	switch Check(s) {
	case CheckNotable, CheckPreviouslySeen, CheckUnique:
		return Check(s), nil
	default:
		return "", fmt.Errorf("unknown check %q", s)
	}
}

// Classify applies check to the occurrences of a value of type t.
// occs must already exclude the current case.
func Classify(check Check, t attribute.Type, occs []occurrence.Occurrence) outcome.Outcome {
	cases := occurrence.CollapseByCase(occs)

	switch check {
	case CheckNotable:
		var bad []occurrence.Occurrence
		for _, o := range cases {
			if o.IsKnownBad() {
				bad = append(bad, o)
			}
		}
		if len(bad) == 0 {
			return outcome.None()
		}
		return outcome.Notable(occurrence.CaseNames(bad))

	case CheckPreviouslySeen:
		if !t.IsDevice() {
			return outcome.None()
		}
		n := len(cases)
		switch {
		case n == 0:
			return outcome.None()
		case n <= MaxLikelyNotableOccurrences:
			return outcome.Seen(occurrence.CaseNames(cases), outcome.ScoreLikelyNotable)
		case n <= MaxSeenOccurrences:
			return outcome.Seen(occurrence.CaseNames(cases), outcome.ScoreNone)
		default:
			return outcome.None()
		}

	case CheckUnique:
		if !t.IsUniqueArtifact() || len(cases) > 0 {
			return outcome.None()
		}
		return outcome.Unseen(outcome.ScoreLikelyNotable)
	}
	return outcome.None()
}

// Evaluate runs every check and returns the outcomes that call for action,
// in check order.
func Evaluate(checks []Check, t attribute.Type, occs []occurrence.Occurrence) []outcome.Outcome {
	var out []outcome.Outcome
	for _, c := range checks {
		if o := Classify(c, t, occs); !o.IsNone() {
			out = append(out, o)
		}
	}
	return out
}
