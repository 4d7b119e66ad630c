// Package outcome defines the classification result for one attribute.
package outcome

import "fmt"

// Kind tags the outcome variant.
type Kind string

// Outcome kinds.
const (
	KindNone    Kind = "none"
	KindNotable Kind = "notable"
	KindSeen    Kind = "seen"
	KindUnseen  Kind = "unseen"
)

// Score is the severity attached to a published result.
type Score string

// Scores.
const (
	ScoreNone          Score = "none"
	ScoreLikelyNotable Score = "likely_notable"
	ScoreNotable       Score = "notable"
)

// ParseScore parses a score name.
func ParseScore(s string) (Score, error) {
	switch Score(s) {
	case ScoreNone, ScoreLikelyNotable, ScoreNotable:
		return Score(s), nil
	default:
		return "", fmt.Errorf("unknown score %q", s)
	}
}

// Outcome is a tagged variant: None, Notable, Seen or Unseen.
type Outcome struct {
	kind      Kind
	caseNames []string
	score     Score
}

// None means no action.
func None() Outcome { return Outcome{kind: KindNone, score: ScoreNone} }

// Notable reports a match against cases that tagged the value as bad.
func Notable(caseNames []string) Outcome {
	return Outcome{kind: KindNotable, caseNames: clone(caseNames), score: ScoreNotable}
}

// Seen reports a device or identity value seen in other cases.
func Seen(caseNames []string, score Score) Outcome {
	return Outcome{kind: KindSeen, caseNames: clone(caseNames), score: score}
}

// Unseen reports a first-ever sighting across all cases.
func Unseen(score Score) Outcome {
	return Outcome{kind: KindUnseen, score: score}
}

// Kind returns the variant tag.
func (o Outcome) Kind() Kind {
	if o.kind == "" {
		return KindNone
	}
	return o.kind
}

// IsNone reports whether the outcome calls for no action.
func (o Outcome) IsNone() bool { return o.Kind() == KindNone }

// CaseNames returns the matching case names.
func (o Outcome) CaseNames() []string { return clone(o.caseNames) }

// Score returns the attached score.
func (o Outcome) Score() Score {
	if o.score == "" {
		return ScoreNone
	}
	return o.score
}

func (o Outcome) String() string {
	switch o.Kind() {
	case KindNotable:
		return fmt.Sprintf("Notable%v", o.caseNames)
	case KindSeen:
		return fmt.Sprintf("Seen{%s %v}", o.score, o.caseNames)
	case KindUnseen:
		return fmt.Sprintf("Unseen{%s}", o.score)
	default:
		return "None"
	}
}

func clone(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
