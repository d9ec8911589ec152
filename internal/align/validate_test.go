package align_test

import (
	"reflect"
	"testing"

	"github.com/airenas/asr-aligner/internal/align"
	"github.com/airenas/asr-aligner/internal/domain"
)

func TestValidate_OK(t *testing.T) {
	tokens := []domain.AlignmentToken{
		{ID: "a", Begin: 0, End: 5, TimeBegin: 0, TimeEnd: 1},
		{ID: "b", Begin: 6, End: 10, TimeBegin: 2, TimeEnd: 3},
	}
	sentences := []domain.SentenceToken{
		{ID: "s1", Begin: 0, End: 5},
		{ID: "s2", Begin: 5, End: 10},
	}
	report := align.Validate(tokens, sentences)
	if !report.OK() {
		t.Errorf("Validate() = %+v, want no violations", report)
	}
}

func TestValidate_TemporalViolation(t *testing.T) {
	tokens := []domain.AlignmentToken{
		{ID: "a", Begin: 10, End: 15, TimeBegin: 0, TimeEnd: 1},
		{ID: "b", Begin: 0, End: 5, TimeBegin: 2, TimeEnd: 3},
	}
	report := align.Validate(tokens, nil)
	if len(report.Temporal) != 1 {
		t.Fatalf("Validate() temporal = %+v, want one violation", report.Temporal)
	}
	v := report.Temporal[0]
	if v.FirstID != "a" || v.SecondID != "b" {
		t.Errorf("violation ids = %s, %s", v.FirstID, v.SecondID)
	}
}

func TestValidate_EqualTimesNotViolation(t *testing.T) {
	tokens := []domain.AlignmentToken{
		{ID: "a", Begin: 10, End: 15, TimeBegin: 1, TimeEnd: 2},
		{ID: "b", Begin: 0, End: 5, TimeBegin: 1, TimeEnd: 2},
	}
	report := align.Validate(tokens, nil)
	if len(report.Temporal) != 0 {
		t.Errorf("Validate() temporal = %+v, want none for equal times", report.Temporal)
	}
}

func TestValidate_SentenceOverlap(t *testing.T) {
	sentences := []domain.SentenceToken{
		{ID: "s1", Begin: 0, End: 7},
		{ID: "s2", Begin: 5, End: 10},
	}
	report := align.Validate(nil, sentences)
	if len(report.Partition) != 1 {
		t.Fatalf("Validate() partition = %+v, want one violation", report.Partition)
	}
	if report.Partition[0].Overlap != 2 {
		t.Errorf("overlap = %d, want 2", report.Partition[0].Overlap)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	tokens := []domain.AlignmentToken{
		{ID: "a", Begin: 10, End: 15, TimeBegin: 0, TimeEnd: 1},
		{ID: "b", Begin: 0, End: 5, TimeBegin: 2, TimeEnd: 3},
	}
	sentences := []domain.SentenceToken{
		{ID: "s1", Begin: 0, End: 7},
		{ID: "s2", Begin: 5, End: 10},
	}
	first := align.Validate(tokens, sentences)
	second := align.Validate(tokens, sentences)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate() not idempotent: %+v vs %+v", first, second)
	}
}
