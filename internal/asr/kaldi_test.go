package asr

import (
	"testing"

	"github.com/airenas/asr-aligner/internal/api"
	"github.com/airenas/asr-aligner/internal/domain"
)

func TestCollectAlignments(t *testing.T) {
	results := []api.KaldiResult{
		{SegmentStart: 0, Segment: 0, Result: api.KaldiPartial{Final: true,
			Hypotheses: []api.KaldiHypothesis{{Transcript: "labas rytas",
				WordAlignment: []api.KaldiWordAlignment{
					{Start: 0.1, Length: 0.4, Word: "labas", Confidence: 0.98},
					{Start: 0.6, Length: 0.5, Word: "rytas", Confidence: 0.91},
				}}}}},
		{SegmentStart: 2.5, Segment: 1, Result: api.KaldiPartial{Final: true,
			Hypotheses: []api.KaldiHypothesis{{Transcript: "aciu",
				WordAlignment: []api.KaldiWordAlignment{
					{Start: 0.2, Length: 0.3, Word: "aciu", Confidence: 0.85},
				}}}}},
	}
	got := CollectAlignments(results)
	if len(got) != 3 {
		t.Fatalf("CollectAlignments() = %d items, want 3", len(got))
	}
	if got[0].Text != "labas" || got[0].Start != 0.1 || got[0].End != 0.5 {
		t.Errorf("first = %+v", got[0])
	}
	if got[2].Text != "aciu" || got[2].Start != 2.7 {
		t.Errorf("segment offset not applied: %+v", got[2])
	}
	if got[1].Meta["confidence"] != 0.91 {
		t.Errorf("meta = %+v", got[1].Meta)
	}
}

func TestCollectAlignments_SkipsEmptyHypotheses(t *testing.T) {
	results := []api.KaldiResult{{Result: api.KaldiPartial{Final: true}}}
	if got := CollectAlignments(results); len(got) != 0 {
		t.Errorf("CollectAlignments() = %+v, want empty", got)
	}
}

func Test_dropInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   []domain.Alignment
		want []string
	}{
		{name: "keeps valid", in: []domain.Alignment{{Text: "a", Start: 0, End: 1}}, want: []string{"a"}},
		{name: "drops empty text", in: []domain.Alignment{{Text: "  ", Start: 0, End: 1}}, want: []string{}},
		{name: "drops bad range", in: []domain.Alignment{{Text: "a", Start: 2, End: 1}}, want: []string{}},
		{name: "trims", in: []domain.Alignment{{Text: " a ", Start: 0, End: 1}}, want: []string{"a"}},
		{name: "mixed", in: []domain.Alignment{
			{Text: "a", Start: 0, End: 1}, {Text: "", Start: 1, End: 2}, {Text: "b", Start: 2, End: 3},
		}, want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dropInvalid(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("dropInvalid() = %+v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Text != tt.want[i] {
					t.Errorf("dropInvalid()[%d] = %q, want %q", i, got[i].Text, tt.want[i])
				}
			}
		})
	}
}
