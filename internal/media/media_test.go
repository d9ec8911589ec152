package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-audio/wav"
)

func TestPCMToWAV(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f, 0x00, 0x80}
	data, err := PCMToWAV(pcm)
	if err != nil {
		t.Fatalf("PCMToWAV() failed: %v", err)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("PCMToWAV() produced invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buf.Data) != 3 {
		t.Errorf("samples = %d, want 3", len(buf.Data))
	}
	if buf.Format.SampleRate != 16000 || buf.Format.NumChannels != 1 {
		t.Errorf("format = %+v", buf.Format)
	}
}

func TestRetriever_FetchWAVPassThrough(t *testing.T) {
	payload := append([]byte("RIFF....WAVE"), make([]byte, 20)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Key secret" {
			t.Errorf("auth = %q", got)
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	r, err := NewRetriever(srv.URL, "secret", t.TempDir())
	if err != nil {
		t.Fatalf("NewRetriever() failed: %v", err)
	}
	path, cleanup, err := r.Fetch(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("wav payload changed")
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("scratch file still present after cleanup")
	}
}

func TestRetriever_FetchWrapsPCM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x01, 0x00, 0x02, 0x00})
	}))
	defer srv.Close()

	r, err := NewRetriever(srv.URL, "", t.TempDir())
	if err != nil {
		t.Fatalf("NewRetriever() failed: %v", err)
	}
	path, cleanup, err := r.Fetch(context.Background(), "a2")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	defer cleanup()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if !wav.NewDecoder(f).IsValidFile() {
		t.Error("pcm payload not wrapped into wav")
	}
}

func TestNewRetriever_Validates(t *testing.T) {
	if _, err := NewRetriever("", "k", ""); err == nil {
		t.Error("NewRetriever() succeeded with empty URL")
	}
}
