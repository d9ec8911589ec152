package asr

import (
	"context"
	"strings"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
)

// Info describes a recognizer variant.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Recognizer produces timestamped alignments from an audio file. Every
// returned alignment has non-empty trimmed text and start < end.
type Recognizer interface {
	Transcribe(ctx context.Context, wavPath string) ([]domain.Alignment, error)
	Describe() Info
}

// dropInvalid filters out items a backend returned against its contract.
func dropInvalid(in []domain.Alignment) []domain.Alignment {
	res := make([]domain.Alignment, 0, len(in))
	for _, a := range in {
		a.Text = strings.TrimSpace(a.Text)
		if !a.Valid() {
			goapp.Log.Warn().Str("text", a.Text).Float64("start", a.Start).Float64("end", a.End).
				Msg("drop invalid segment from backend")
			continue
		}
		res = append(res, a)
	}
	return res
}
