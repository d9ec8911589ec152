package store

import (
	"context"

	"github.com/airenas/asr-aligner/internal/domain"
)

// Document is a document with its text layer and nested token layers.
type Document struct {
	ID    string
	Audio string
	Text  TextLayer
}

// TextLayer is the text body with its token layers. An empty
// SentenceLayerID means the document carries no sentence layer.
type TextLayer struct {
	ID              string
	Body            string
	SentenceLayerID string
	Alignment       []domain.AlignmentToken
	Sentences       []domain.SentenceToken
}

// TokenCreate describes an alignment token to create.
type TokenCreate struct {
	Begin     int
	End       int
	TimeBegin float64
	TimeEnd   float64
	Text      string
	Meta      map[string]any
}

// TokenUpdate repositions an existing alignment token.
type TokenUpdate struct {
	ID    string
	Begin int
	End   int
}

// SentenceCreate describes a sentence token to create.
type SentenceCreate struct {
	Begin int
	End   int
}

// Batch collects all mutations of one transaction. It is submitted as one
// atomic operation, the store guarantees all-or-nothing application.
type Batch struct {
	DocID            string
	Body             *string
	CreateAlignments []TokenCreate
	UpdateAlignments []TokenUpdate
	DeleteSentences  []string
	CreateSentences  []SentenceCreate
}

// Empty reports whether the batch carries no mutations.
func (b *Batch) Empty() bool {
	return b.Body == nil && len(b.CreateAlignments) == 0 && len(b.UpdateAlignments) == 0 &&
		len(b.DeleteSentences) == 0 && len(b.CreateSentences) == 0
}

// BatchResult carries ids of created tokens in input order.
type BatchResult struct {
	AlignmentIDs []string
	SentenceIDs  []string
}

// Store is the document store boundary.
type Store interface {
	FetchDocument(ctx context.Context, id string) (*Document, error)
	Submit(ctx context.Context, b *Batch) (*BatchResult, error)
}

// Locker provides an exclusive per-document lock. Lock returns an opaque
// token that must be passed back to Unlock.
type Locker interface {
	Lock(ctx context.Context, docID string) (string, error)
	Unlock(ctx context.Context, docID string, token string) error
}
