package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/airenas/asr-aligner/internal/api"
	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/gorilla/websocket"
)

const wsChunkSize = 8192

// KaldiRecognizer streams audio to a kaldi gstreamer backend over
// websocket and collects word alignments from final hypotheses.
type KaldiRecognizer struct {
	url     string
	version string
	timeout time.Duration
}

// NewKaldiRecognizer creates the recognizer.
func NewKaldiRecognizer(url string) (*KaldiRecognizer, error) {
	if url == "" {
		return nil, fmt.Errorf("no speech URL")
	}
	res := &KaldiRecognizer{url: url, version: "1", timeout: time.Minute * 10}
	goapp.Log.Info().Str("url", url).Msg("Kaldi recognizer")
	return res, nil
}

func (k *KaldiRecognizer) Describe() Info {
	return Info{Name: "kaldi", Version: k.version}
}

// Transcribe sends the file in chunks, signals EOS and reads results until
// the backend closes the connection.
func (k *KaldiRecognizer) Transcribe(ctx context.Context, wavPath string) ([]domain.Alignment, error) {
	ctx, cancelF := context.WithTimeout(ctx, k.timeout)
	defer cancelF()

	c, _, err := websocket.DefaultDialer.DialContext(ctx, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't dial to URL: %w", err)
	}
	defer c.Close()

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", wavPath, err)
	}
	defer f.Close()

	buf := make([]byte, wsChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if err := c.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return nil, fmt.Errorf("send audio: %w", err)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", wavPath, err)
		}
	}
	if err := c.WriteMessage(websocket.TextMessage, []byte("EOS")); err != nil {
		return nil, fmt.Errorf("send EOS: %w", err)
	}

	var results []api.KaldiResult
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				break
			}
			return nil, fmt.Errorf("read result: %w", err)
		}
		var res api.KaldiResult
		if err := json.Unmarshal(msg, &res); err != nil {
			goapp.Log.Error().Err(err).Msg("decode err")
			continue
		}
		if res.Status != 0 {
			return nil, fmt.Errorf("backend status %d", res.Status)
		}
		if res.Result.Final {
			results = append(results, res)
		}
	}
	return dropInvalid(CollectAlignments(results)), nil
}

// CollectAlignments converts final kaldi results to alignments, one per
// word, with times made absolute by the segment start.
func CollectAlignments(results []api.KaldiResult) []domain.Alignment {
	var res []domain.Alignment
	for _, r := range results {
		if len(r.Result.Hypotheses) == 0 {
			continue
		}
		for _, wa := range r.Result.Hypotheses[0].WordAlignment {
			start := r.SegmentStart + wa.Start
			res = append(res, domain.Alignment{
				Text:  wa.Word,
				Start: start,
				End:   start + wa.Length,
				Meta:  map[string]any{"confidence": wa.Confidence, "segment": r.Segment},
			})
		}
	}
	return res
}
