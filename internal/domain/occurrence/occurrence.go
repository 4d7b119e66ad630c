// Package occurrence holds prior sightings of a correlation value.
package occurrence

import "github.com/kailas-cloud/crossref/internal/domain"

// Occurrence is a previously recorded sighting of a value in some case.
type Occurrence struct {
	caseUUID        string
	caseDisplayName string
	knownStatus     domain.KnownStatus
}

// New creates an Occurrence. An empty known status means unknown.
func New(caseUUID, caseDisplayName string, known domain.KnownStatus) Occurrence {
	if known == "" {
		known = domain.KnownUnknown
	}
	return Occurrence{caseUUID: caseUUID, caseDisplayName: caseDisplayName, knownStatus: known}
}

// CaseUUID returns the case the value was seen in.
func (o Occurrence) CaseUUID() string { return o.caseUUID }

// CaseDisplayName returns the human readable case name.
func (o Occurrence) CaseDisplayName() string { return o.caseDisplayName }

// KnownStatus returns the known status of the sighting.
func (o Occurrence) KnownStatus() domain.KnownStatus { return o.knownStatus }

// IsKnownBad reports whether the sighting was tagged notable.
func (o Occurrence) IsKnownBad() bool { return o.knownStatus == domain.KnownBad }

// CollapseByCase merges occurrences into one per case, keeping first-seen
// order. A case is known bad if any of its sightings is.
func CollapseByCase(occs []Occurrence) []Occurrence {
	idx := make(map[string]int, len(occs))
	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		if i, ok := idx[o.caseUUID]; ok {
			if o.IsKnownBad() {
				out[i].knownStatus = domain.KnownBad
			}
			continue
		}
		idx[o.caseUUID] = len(out)
		out = append(out, o)
	}
	return out
}

// ExcludeCase drops occurrences that belong to caseUUID.
func ExcludeCase(occs []Occurrence, caseUUID string) []Occurrence {
	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		if o.caseUUID != caseUUID {
			out = append(out, o)
		}
	}
	return out
}

// CaseNames returns the distinct display names of occs in order.
func CaseNames(occs []Occurrence) []string {
	seen := make(map[string]bool, len(occs))
	names := make([]string, 0, len(occs))
	for _, o := range occs {
		if seen[o.caseDisplayName] {
			continue
		}
		seen[o.caseDisplayName] = true
		names = append(names, o.caseDisplayName)
	}
	return names
}
