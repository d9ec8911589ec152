package domain

import "strings"

// Alignment is one timestamped text segment produced by a recognizer.
// It is input only, never mutated by the engine.
type Alignment struct {
	Text  string         `json:"text"`
	Start float64        `json:"start"`
	End   float64        `json:"end"`
	Meta  map[string]any `json:"metadata,omitempty"`
}

// Valid checks recognizer guarantees: non-empty trimmed text, start < end.
func (a Alignment) Valid() bool {
	return strings.TrimSpace(a.Text) != "" && a.Start >= 0 && a.End > a.Start
}

// AlignmentToken is a committed mapping from a character range in the text
// body to an audio time range. The time range is fixed at creation, only
// Begin/End shift when text is inserted before the token.
type AlignmentToken struct {
	ID        string
	TextID    string
	Begin     int
	End       int
	TimeBegin float64
	TimeEnd   float64
	Meta      map[string]any
}

// SentenceToken is a committed character range with no time data. All
// sentence tokens of a text form a partition: pairwise non-overlapping,
// adjacent spans share a boundary, together they cover [0, len(text)).
type SentenceToken struct {
	ID     string
	TextID string
	Begin  int
	End    int
}

// TextModification describes one pending insertion against the pre-edit
// text body. Transient, discarded after the transaction commits.
type TextModification struct {
	Position  int
	Insert    string
	TokenText string
	TimeBegin float64
	TimeEnd   float64
	Meta      map[string]any
}

// Overlaps reports whether half-open ranges [aBegin, aEnd) and
// [bBegin, bEnd) intersect.
func Overlaps(aBegin, aEnd, bBegin, bEnd float64) bool {
	return !(aEnd <= bBegin || aBegin >= bEnd)
}

// OverlapsInt is Overlaps for character ranges.
func OverlapsInt(aBegin, aEnd, bBegin, bEnd int) bool {
	return !(aEnd <= bBegin || aBegin >= bEnd)
}
