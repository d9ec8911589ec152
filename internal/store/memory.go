package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/oklog/ulid/v2"
)

// Memory is an in-process Store and Locker, used in tests and for local
// runs without a real document store.
type Memory struct {
	lock  sync.Mutex
	docs  map[string]*Document
	locks map[string]string
	seq   int
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]*Document{}, locks: map[string]string{}}
}

// PutDocument seeds a document.
func (m *Memory) PutDocument(doc *Document) {
	m.lock.Lock()
	defer m.lock.Unlock()
	cp := copyDoc(doc)
	m.docs[doc.ID] = cp
}

// FetchDocument implements Store.
func (m *Memory) FetchDocument(ctx context.Context, id string) (*Document, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return copyDoc(doc), nil
}

// Submit implements Store. All operations are validated first, then
// applied, so a failing batch leaves the document untouched.
func (m *Memory) Submit(ctx context.Context, b *Batch) (*BatchResult, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	doc, ok := m.docs[b.DocID]
	if !ok {
		return nil, fmt.Errorf("document %s not found", b.DocID)
	}

	alignByID := map[string]int{}
	for i, t := range doc.Text.Alignment {
		alignByID[t.ID] = i
	}
	for _, u := range b.UpdateAlignments {
		if _, ok := alignByID[u.ID]; !ok {
			return nil, fmt.Errorf("unknown alignment token %s", u.ID)
		}
	}
	sentByID := map[string]int{}
	for i, s := range doc.Text.Sentences {
		sentByID[s.ID] = i
	}
	for _, id := range b.DeleteSentences {
		if _, ok := sentByID[id]; !ok {
			return nil, fmt.Errorf("unknown sentence token %s", id)
		}
	}
	if len(b.CreateSentences) > 0 && doc.Text.SentenceLayerID == "" {
		return nil, fmt.Errorf("document %s has no sentence layer", b.DocID)
	}

	if b.Body != nil {
		doc.Text.Body = *b.Body
	}
	for _, u := range b.UpdateAlignments {
		i := alignByID[u.ID]
		doc.Text.Alignment[i].Begin = u.Begin
		doc.Text.Alignment[i].End = u.End
	}
	res := &BatchResult{}
	for _, c := range b.CreateAlignments {
		m.seq++
		id := fmt.Sprintf("tok-%d", m.seq)
		doc.Text.Alignment = append(doc.Text.Alignment, domain.AlignmentToken{
			ID: id, TextID: doc.Text.ID, Begin: c.Begin, End: c.End,
			TimeBegin: c.TimeBegin, TimeEnd: c.TimeEnd, Meta: c.Meta,
		})
		res.AlignmentIDs = append(res.AlignmentIDs, id)
	}
	if len(b.DeleteSentences) > 0 {
		del := map[string]bool{}
		for _, id := range b.DeleteSentences {
			del[id] = true
		}
		kept := doc.Text.Sentences[:0]
		for _, s := range doc.Text.Sentences {
			if !del[s.ID] {
				kept = append(kept, s)
			}
		}
		doc.Text.Sentences = kept
	}
	for _, c := range b.CreateSentences {
		m.seq++
		id := fmt.Sprintf("sent-%d", m.seq)
		doc.Text.Sentences = append(doc.Text.Sentences, domain.SentenceToken{
			ID: id, TextID: doc.Text.ID, Begin: c.Begin, End: c.End,
		})
		res.SentenceIDs = append(res.SentenceIDs, id)
	}
	return res, nil
}

// Lock implements Locker, fail-fast on contention.
func (m *Memory) Lock(ctx context.Context, docID string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, held := m.locks[docID]; held {
		return "", fmt.Errorf("document %s is locked", docID)
	}
	token := ulid.Make().String()
	m.locks[docID] = token
	return token, nil
}

// Unlock implements Locker.
func (m *Memory) Unlock(ctx context.Context, docID string, token string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	cur, held := m.locks[docID]
	if !held {
		return fmt.Errorf("document %s is not locked", docID)
	}
	if cur != token {
		return fmt.Errorf("wrong lock token for %s", docID)
	}
	delete(m.locks, docID)
	return nil
}

func copyDoc(doc *Document) *Document {
	cp := *doc
	cp.Text.Alignment = make([]domain.AlignmentToken, len(doc.Text.Alignment))
	copy(cp.Text.Alignment, doc.Text.Alignment)
	cp.Text.Sentences = make([]domain.SentenceToken, len(doc.Text.Sentences))
	copy(cp.Text.Sentences, doc.Text.Sentences)
	return &cp
}
