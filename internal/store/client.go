package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
)

// Client talks to the remote document store over its JSON API.
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	timeout    time.Duration
}

// NewClient creates a document store client.
func NewClient(url, key string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no store URL")
	}
	res := &Client{url: url, key: key, timeout: time.Second * 30}
	res.httpclient = &http.Client{Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}}
	goapp.Log.Info().Str("url", url).Msg("Document store")
	return res, nil
}

type tokenData struct {
	ID       string         `json:"id"`
	Begin    int            `json:"begin"`
	End      int            `json:"end"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type textLayerData struct {
	ID              string      `json:"id"`
	Body            string      `json:"body"`
	SentenceLayerID string      `json:"sentenceLayerId,omitempty"`
	AlignmentTokens []tokenData `json:"alignmentTokens,omitempty"`
	SentenceTokens  []tokenData `json:"sentenceTokens,omitempty"`
}

type documentData struct {
	ID    string        `json:"id"`
	Audio string        `json:"audio,omitempty"`
	Text  textLayerData `json:"text"`
}

type batchData struct {
	Body             *string        `json:"body,omitempty"`
	CreateAlignments []tokenData    `json:"createAlignments,omitempty"`
	UpdateAlignments []tokenData    `json:"updateAlignments,omitempty"`
	DeleteSentences  []string       `json:"deleteSentences,omitempty"`
	CreateSentences  []sentenceData `json:"createSentences,omitempty"`
}

type sentenceData struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

type batchResultData struct {
	AlignmentIDs []string `json:"alignmentIds"`
	SentenceIDs  []string `json:"sentenceIds"`
}

// FetchDocument implements Store.
func (c *Client) FetchDocument(ctx context.Context, id string) (*Document, error) {
	var out documentData
	if err := c.invoke(ctx, http.MethodGet, fmt.Sprintf("%s/documents/%s", c.url, id), nil, &out); err != nil {
		return nil, err
	}
	res := &Document{ID: out.ID, Audio: out.Audio}
	res.Text = TextLayer{ID: out.Text.ID, Body: out.Text.Body, SentenceLayerID: out.Text.SentenceLayerID}
	for _, t := range out.Text.AlignmentTokens {
		res.Text.Alignment = append(res.Text.Alignment, toAlignmentToken(t, out.Text.ID))
	}
	for _, t := range out.Text.SentenceTokens {
		res.Text.Sentences = append(res.Text.Sentences, domain.SentenceToken{
			ID: t.ID, TextID: out.Text.ID, Begin: t.Begin, End: t.End,
		})
	}
	return res, nil
}

// Submit implements Store. The server applies the batch atomically.
func (c *Client) Submit(ctx context.Context, b *Batch) (*BatchResult, error) {
	in := batchData{Body: b.Body, DeleteSentences: b.DeleteSentences}
	for _, t := range b.CreateAlignments {
		meta := map[string]any{"timeBegin": t.TimeBegin, "timeEnd": t.TimeEnd}
		for k, v := range t.Meta {
			meta[k] = v
		}
		in.CreateAlignments = append(in.CreateAlignments, tokenData{Begin: t.Begin, End: t.End, Metadata: meta})
	}
	for _, t := range b.UpdateAlignments {
		in.UpdateAlignments = append(in.UpdateAlignments, tokenData{ID: t.ID, Begin: t.Begin, End: t.End})
	}
	for _, s := range b.CreateSentences {
		in.CreateSentences = append(in.CreateSentences, sentenceData{Begin: s.Begin, End: s.End})
	}
	var out batchResultData
	if err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("%s/documents/%s/batch", c.url, b.DocID), &in, &out); err != nil {
		return nil, err
	}
	return &BatchResult{AlignmentIDs: out.AlignmentIDs, SentenceIDs: out.SentenceIDs}, nil
}

func (c *Client) invoke(ctx context.Context, method, url string, in, out any) error {
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()

	var body io.Reader
	if in != nil {
		b := new(bytes.Buffer)
		if err := json.NewEncoder(b).Encode(in); err != nil {
			return err
		}
		body = b
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Key "+c.key)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toAlignmentToken(t tokenData, textID string) domain.AlignmentToken {
	res := domain.AlignmentToken{ID: t.ID, TextID: textID, Begin: t.Begin, End: t.End}
	meta := map[string]any{}
	for k, v := range t.Metadata {
		switch k {
		case "timeBegin":
			res.TimeBegin = asFloat(v)
		case "timeEnd":
			res.TimeEnd = asFloat(v)
		default:
			meta[k] = v
		}
	}
	if len(meta) > 0 {
		res.Meta = meta
	}
	return res
}

func asFloat(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case json.Number:
		res, _ := f.Float64()
		return res
	case int:
		return float64(f)
	}
	return 0
}
