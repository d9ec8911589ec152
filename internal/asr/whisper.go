package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/asr-aligner/internal/utils"
	"github.com/airenas/go-app/pkg/goapp"
)

// WhisperRecognizer uploads the audio file to a whisper-style HTTP service
// and reads segment-level alignments from the JSON response.
type WhisperRecognizer struct {
	httpclient *http.Client
	url        string
	model      string
	timeout    time.Duration
}

// NewWhisperRecognizer creates the recognizer.
func NewWhisperRecognizer(url, model string) (*WhisperRecognizer, error) {
	if url == "" {
		return nil, fmt.Errorf("no whisper URL")
	}
	res := &WhisperRecognizer{url: url, model: model, timeout: time.Minute * 10}
	res.httpclient = &http.Client{Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}}
	goapp.Log.Info().Str("url", url).Str("model", model).Msg("Whisper recognizer")
	return res, nil
}

func (w *WhisperRecognizer) Describe() Info {
	return Info{Name: "whisper", Version: w.model}
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperResponse struct {
	Segments []whisperSegment `json:"segments"`
}

func (w *WhisperRecognizer) Transcribe(ctx context.Context, wavPath string) ([]domain.Alignment, error) {
	defer utils.MeasureTime("whisper", time.Now())
	ctx, cancelF := context.WithTimeout(ctx, w.timeout)
	defer cancelF()

	f, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", wavPath, err)
	}
	defer f.Close()

	b := new(bytes.Buffer)
	mw := multipart.NewWriter(b)
	fw, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	if w.model != "" {
		if err := mw.WriteField("model", w.model); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := w.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	out := &whisperResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, err
	}
	res := make([]domain.Alignment, 0, len(out.Segments))
	for _, s := range out.Segments {
		res = append(res, domain.Alignment{Text: s.Text, Start: s.Start, End: s.End})
	}
	return dropInvalid(res), nil
}
