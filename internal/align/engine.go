package align

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/asr-aligner/internal/store"
	"github.com/airenas/asr-aligner/internal/utils"
	"github.com/airenas/go-app/pkg/goapp"
)

// Engine merges recognizer output into a document under an exclusive lock
// and a single atomic batch.
type Engine struct {
	store store.Store
	locks store.Locker
}

// Result reports what one invocation changed.
type Result struct {
	Created   int `json:"tokens"`
	Dropped   int `json:"dropped"`
	Shifted   int `json:"shifted"`
	Sentences int `json:"sentences"`
}

// NewEngine creates the engine.
func NewEngine(s store.Store, l store.Locker) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("no store")
	}
	if l == nil {
		return nil, fmt.Errorf("no locker")
	}
	return &Engine{store: s, locks: l}, nil
}

// Align inserts the given segments into the document's text. All mutations
// go through one atomic batch, so a failure never leaves partial state.
// Invariant validation runs after commit, outside the lock, best-effort.
func (e *Engine) Align(ctx context.Context, docID string, input []domain.Alignment) (*Result, error) {
	defer utils.MeasureTime("align", time.Now())
	if docID == "" {
		return nil, fmt.Errorf("no document id")
	}
	for i, a := range input {
		if !a.Valid() {
			return nil, fmt.Errorf("invalid segment %d: empty text or bad time range [%f, %f)", i, a.Start, a.End)
		}
	}

	token, err := e.locks.Lock(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", docID, err)
	}
	unlocked := false
	unlock := func() {
		if unlocked {
			return
		}
		unlocked = true
		if err := e.locks.Unlock(ctx, docID, token); err != nil {
			goapp.Log.Error().Err(err).Str("doc", docID).Msg("can't release lock")
		}
	}
	defer unlock()

	doc, err := e.store.FetchDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", docID, err)
	}

	existing := make([]domain.AlignmentToken, len(doc.Text.Alignment))
	copy(existing, doc.Text.Alignment)
	sort.SliceStable(existing, func(i, j int) bool { return existing[i].TimeBegin < existing[j].TimeBegin })

	kept := FilterColliding(input, existing)
	res := &Result{Dropped: len(input) - len(kept)}
	if len(kept) == 0 {
		goapp.Log.Info().Str("doc", docID).Str("requestID", utils.RequestID(ctx)).
			Int("dropped", res.Dropped).Msg("nothing to insert")
		return res, nil
	}

	// position ties among new segments are broken by processing order, so
	// order by time first (stable, keeps input order for equal times)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	textLen := len([]rune(doc.Text.Body))
	items := make([]Insertion, 0, len(kept))
	for _, a := range kept {
		items = append(items, Insertion{
			Position:  ResolvePosition(textLen, existing, a.Start),
			Alignment: a,
		})
	}

	newBody, created, mods := Patch(doc.Text.Body, items)
	shifts := ShiftTokens(existing, mods)

	batch := &store.Batch{DocID: docID, Body: &newBody}
	for _, t := range created {
		batch.CreateAlignments = append(batch.CreateAlignments, store.TokenCreate{
			Begin: t.Begin, End: t.End, TimeBegin: t.TimeBegin, TimeEnd: t.TimeEnd,
			Text: t.Text, Meta: t.Meta,
		})
	}
	for _, s := range shifts {
		batch.UpdateAlignments = append(batch.UpdateAlignments, store.TokenUpdate{
			ID: s.ID, Begin: s.NewBegin, End: s.NewEnd,
		})
	}

	if doc.Text.SentenceLayerID != "" {
		totalInserted := 0
		for _, m := range mods {
			totalInserted += len([]rune(m.Insert))
		}
		change := Repartition(doc.Text.Sentences, created, ApplyShifts(existing, shifts),
			len([]rune(newBody)), totalInserted)
		if !change.Empty() {
			batch.DeleteSentences = change.DeleteIDs
			for _, s := range change.Create {
				batch.CreateSentences = append(batch.CreateSentences, store.SentenceCreate{Begin: s.Begin, End: s.End})
			}
			res.Sentences = len(change.Create)
		}
	}

	if _, err := e.store.Submit(ctx, batch); err != nil {
		return nil, fmt.Errorf("submit batch for %s: %w", docID, err)
	}
	res.Created = len(created)
	res.Shifted = len(shifts)
	goapp.Log.Info().Str("doc", docID).Str("requestID", utils.RequestID(ctx)).
		Int("tokens", res.Created).Int("dropped", res.Dropped).
		Int("shifted", res.Shifted).Int("sentences", res.Sentences).Msg("committed")

	unlock()
	e.validate(ctx, docID)
	return res, nil
}

// validate re-reads committed state and reports invariant violations. It
// never fails the transaction, by the time a violation is visible the
// batch has already committed.
func (e *Engine) validate(ctx context.Context, docID string) {
	doc, err := e.store.FetchDocument(ctx, docID)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("doc", docID).Msg("can't fetch state for validation")
		return
	}
	report := Validate(doc.Text.Alignment, doc.Text.Sentences)
	for _, v := range report.Temporal {
		goapp.Log.Warn().Str("doc", docID).Str("first", v.FirstID).Str("second", v.SecondID).
			Float64("firstTime", v.FirstTime).Float64("secondTime", v.SecondTime).
			Int("firstPos", v.FirstPos).Int("secondPos", v.SecondPos).
			Msg("temporal order violation")
	}
	for _, v := range report.Partition {
		goapp.Log.Warn().Str("doc", docID).Str("first", v.FirstID).Str("second", v.SecondID).
			Int("overlap", v.Overlap).Msg("sentence overlap violation")
	}
}
