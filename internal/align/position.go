package align

import (
	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
)

// ResolvePosition maps a segment's start time to a character offset in the
// current text. existing must be sorted by TimeBegin. The returned offset is
// always in [0, textLen] and keeps character order consistent with time
// order: a token committed earlier in time stays at a lower offset.
func ResolvePosition(textLen int, existing []domain.AlignmentToken, t float64) int {
	if len(existing) == 0 {
		return textLen
	}
	for i, tok := range existing {
		if tok.TimeBegin > t {
			if i == 0 {
				return 0
			}
			prev := existing[i-1]
			if tok.Begin < prev.End {
				// committed tokens are themselves out of temporal-positional
				// order; keep going and pick the later token's begin
				goapp.Log.Warn().Str("id", tok.ID).Str("prevId", prev.ID).
					Int("begin", tok.Begin).Int("prevEnd", prev.End).
					Msg("existing tokens out of order")
				return tok.Begin
			}
			return prev.End
		}
	}
	return existing[len(existing)-1].End
}
