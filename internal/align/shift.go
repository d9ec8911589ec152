package align

import "github.com/airenas/asr-aligner/internal/domain"

// TokenShift is a position correction for one pre-existing token.
type TokenShift struct {
	ID       string
	NewBegin int
	NewEnd   int
}

// ShiftTokens recomputes offsets of pre-existing tokens after insertions.
// Positions in mods are against the pre-edit text, so every token moves by
// exactly the amount of text inserted at or before its original begin.
// Tokens with zero adjustment are omitted.
func ShiftTokens(existing []domain.AlignmentToken, mods []domain.TextModification) []TokenShift {
	var res []TokenShift
	for _, tok := range existing {
		delta := 0
		for _, m := range mods {
			if m.Position <= tok.Begin {
				delta += len([]rune(m.Insert))
			}
		}
		if delta == 0 {
			continue
		}
		res = append(res, TokenShift{ID: tok.ID, NewBegin: tok.Begin + delta, NewEnd: tok.End + delta})
	}
	return res
}

// ApplyShifts returns a copy of tokens with shifts applied, for components
// that need post-edit coordinates of the pre-existing tokens.
func ApplyShifts(tokens []domain.AlignmentToken, shifts []TokenShift) []domain.AlignmentToken {
	byID := make(map[string]TokenShift, len(shifts))
	for _, s := range shifts {
		byID[s.ID] = s
	}
	res := make([]domain.AlignmentToken, len(tokens))
	copy(res, tokens)
	for i := range res {
		if s, ok := byID[res[i].ID]; ok {
			res[i].Begin, res[i].End = s.NewBegin, s.NewEnd
		}
	}
	return res
}
