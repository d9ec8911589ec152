package align

import (
	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
)

// FilterColliding drops incoming alignments whose time range overlaps any
// existing token's time range. A colliding segment is dropped entirely,
// there is no partial insertion. Input order is preserved.
func FilterColliding(in []domain.Alignment, existing []domain.AlignmentToken) []domain.Alignment {
	if len(existing) == 0 {
		return in
	}
	res := make([]domain.Alignment, 0, len(in))
	for _, a := range in {
		if collides(a, existing) {
			goapp.Log.Debug().Str("text", a.Text).Float64("start", a.Start).Float64("end", a.End).
				Msg("drop colliding segment")
			continue
		}
		res = append(res, a)
	}
	return res
}

func collides(a domain.Alignment, existing []domain.AlignmentToken) bool {
	for _, t := range existing {
		if domain.Overlaps(a.Start, a.End, t.TimeBegin, t.TimeEnd) {
			return true
		}
	}
	return false
}
