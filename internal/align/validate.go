package align

import (
	"sort"

	"github.com/airenas/asr-aligner/internal/domain"
)

// TemporalViolation is an adjacent token pair whose character order
// disagrees with its time order.
type TemporalViolation struct {
	FirstID    string
	SecondID   string
	FirstTime  float64
	SecondTime float64
	FirstPos   int
	SecondPos  int
}

// PartitionViolation is an adjacent sentence pair with overlapping ranges.
type PartitionViolation struct {
	FirstID  string
	SecondID string
	Overlap  int
}

// Report holds the findings of a post-commit validation pass.
type Report struct {
	Temporal  []TemporalViolation
	Partition []PartitionViolation
}

// OK reports whether no violations were found.
func (r *Report) OK() bool {
	return len(r.Temporal) == 0 && len(r.Partition) == 0
}

// Validate is a read-only diagnostic pass over committed state. It never
// mutates anything and its findings are never treated as errors.
func Validate(tokens []domain.AlignmentToken, sentences []domain.SentenceToken) *Report {
	res := &Report{}

	byTime := make([]domain.AlignmentToken, len(tokens))
	copy(byTime, tokens)
	sort.SliceStable(byTime, func(i, j int) bool { return byTime[i].TimeBegin < byTime[j].TimeBegin })
	for i := 1; i < len(byTime); i++ {
		a, b := byTime[i-1], byTime[i]
		if a.TimeBegin < b.TimeBegin && a.Begin >= b.Begin {
			res.Temporal = append(res.Temporal, TemporalViolation{
				FirstID: a.ID, SecondID: b.ID,
				FirstTime: a.TimeBegin, SecondTime: b.TimeBegin,
				FirstPos: a.Begin, SecondPos: b.Begin,
			})
		}
	}

	byPos := make([]domain.SentenceToken, len(sentences))
	copy(byPos, sentences)
	sort.SliceStable(byPos, func(i, j int) bool { return byPos[i].Begin < byPos[j].Begin })
	for i := 1; i < len(byPos); i++ {
		a, b := byPos[i-1], byPos[i]
		if a.End > b.Begin {
			res.Partition = append(res.Partition, PartitionViolation{
				FirstID: a.ID, SecondID: b.ID, Overlap: a.End - b.Begin,
			})
		}
	}
	return res
}
