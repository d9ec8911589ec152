package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/airenas/asr-aligner/internal/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/oklog/ulid/v2"
)

// Retriever downloads the audio referenced by a document to a scratch file
// before transcription.
type Retriever struct {
	httpclient *http.Client
	url        string
	key        string
	scratchDir string
	timeout    time.Duration
}

// NewRetriever creates a media retriever.
func NewRetriever(url, key, scratchDir string) (*Retriever, error) {
	if url == "" {
		return nil, fmt.Errorf("no media URL")
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	res := &Retriever{url: url, key: key, scratchDir: scratchDir, timeout: time.Minute * 5}
	res.httpclient = &http.Client{Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}}
	goapp.Log.Info().Str("url", url).Str("scratch", scratchDir).Msg("Media retriever")
	return res, nil
}

// Fetch downloads the audio for audioID and materializes it as a WAV file.
// The returned cleanup func removes the file and must run regardless of
// outcome.
func (r *Retriever) Fetch(ctx context.Context, audioID string) (string, func(), error) {
	defer utils.MeasureTime("media fetch", time.Now())
	ctx, cancelF := context.WithTimeout(ctx, r.timeout)
	defer cancelF()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", r.url, audioID), nil)
	if err != nil {
		return "", nil, err
	}
	if r.key != "" {
		req.Header.Set("Authorization", "Key "+r.key)
	}
	resp, err := r.httpclient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	if !isWAV(data) {
		// backends may return raw 16 kHz mono 16-bit PCM
		data, err = PCMToWAV(data)
		if err != nil {
			return "", nil, fmt.Errorf("wrap pcm: %w", err)
		}
	}

	path := filepath.Join(r.scratchDir, fmt.Sprintf("audio-%s.wav", ulid.Make().String()))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", nil, fmt.Errorf("write %s: %w", path, err)
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil {
			goapp.Log.Warn().Err(err).Str("path", path).Msg("can't remove scratch file")
		}
	}
	return path, cleanup, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

type memBuffer struct {
	buf []byte
	pos int64
}

func (m *memBuffer) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		newBuf := make([]byte, end)
		copy(newBuf, m.buf)
		m.buf = newBuf
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = m.pos + offset
	case io.SeekEnd:
		newPos = int64(len(m.buf)) + offset
	}
	if newPos < 0 {
		return 0, fmt.Errorf("negative position")
	}
	m.pos = newPos
	return newPos, nil
}

// PCMToWAV wraps raw 16 kHz mono 16-bit little-endian PCM into a WAV
// container.
func PCMToWAV(raw []byte) ([]byte, error) {
	samples := make([]int, len(raw)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int(int16(raw[2*i]) | int16(raw[2*i+1])<<8)
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  16000,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}

	wavBuf := &memBuffer{buf: make([]byte, 0)}
	enc := wav.NewEncoder(wavBuf, 16000, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav: %w", err)
	}
	return wavBuf.buf, nil
}
