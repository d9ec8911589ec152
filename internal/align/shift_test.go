package align_test

import (
	"testing"

	"github.com/airenas/asr-aligner/internal/align"
	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/brianvoe/gofakeit/v6"
)

func mod(pos int, insert string) domain.TextModification {
	return domain.TextModification{Position: pos, Insert: insert}
}

func TestShiftTokens(t *testing.T) {
	tests := []struct {
		name     string
		existing []domain.AlignmentToken
		mods     []domain.TextModification
		want     []align.TokenShift
	}{
		{name: "no mods", existing: []domain.AlignmentToken{{ID: "1", Begin: 0, End: 5}}},
		{name: "insert after token untouched",
			existing: []domain.AlignmentToken{{ID: "1", Begin: 0, End: 5}},
			mods:     []domain.TextModification{mod(6, "abc")}},
		{name: "insert before token",
			existing: []domain.AlignmentToken{{ID: "1", Begin: 5, End: 8}},
			mods:     []domain.TextModification{mod(2, "ab ")},
			want:     []align.TokenShift{{ID: "1", NewBegin: 8, NewEnd: 11}}},
		{name: "insert at token begin shifts",
			existing: []domain.AlignmentToken{{ID: "1", Begin: 5, End: 8}},
			mods:     []domain.TextModification{mod(5, "ab")},
			want:     []align.TokenShift{{ID: "1", NewBegin: 7, NewEnd: 10}}},
		{name: "multiple insertions accumulate",
			existing: []domain.AlignmentToken{{ID: "1", Begin: 10, End: 12}},
			mods:     []domain.TextModification{mod(0, "a "), mod(5, "bb "), mod(11, "ccc")},
			want:     []align.TokenShift{{ID: "1", NewBegin: 15, NewEnd: 17}}},
		{name: "unicode insert counts runes",
			existing: []domain.AlignmentToken{{ID: "1", Begin: 3, End: 4}},
			mods:     []domain.TextModification{mod(0, "ąžė")},
			want:     []align.TokenShift{{ID: "1", NewBegin: 6, NewEnd: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := align.ShiftTokens(tt.existing, tt.mods)
			if len(got) != len(tt.want) {
				t.Fatalf("ShiftTokens() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ShiftTokens()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestShiftTokens_Random(t *testing.T) {
	faker := gofakeit.New(3)
	for run := 0; run < 50; run++ {
		var existing []domain.AlignmentToken
		for i := 0; i < faker.Number(1, 10); i++ {
			begin := faker.Number(0, 100)
			existing = append(existing, domain.AlignmentToken{
				ID: faker.UUID(), Begin: begin, End: begin + faker.Number(1, 10),
			})
		}
		var mods []domain.TextModification
		for i := 0; i < faker.Number(1, 6); i++ {
			mods = append(mods, mod(faker.Number(0, 100), faker.LetterN(uint(faker.Number(1, 12)))))
		}
		shifts := align.ShiftTokens(existing, mods)
		byID := map[string]align.TokenShift{}
		for _, s := range shifts {
			byID[s.ID] = s
		}
		for _, tok := range existing {
			want := 0
			for _, m := range mods {
				if m.Position <= tok.Begin {
					want += len([]rune(m.Insert))
				}
			}
			s, ok := byID[tok.ID]
			if want == 0 {
				if ok {
					t.Fatalf("token %s shifted with zero delta: %+v", tok.ID, s)
				}
				continue
			}
			if !ok || s.NewBegin != tok.Begin+want || s.NewEnd != tok.End+want {
				t.Fatalf("token %s shift = %+v, want delta %d", tok.ID, s, want)
			}
		}
	}
}
