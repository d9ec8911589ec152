package align

import (
	"sort"

	"github.com/airenas/asr-aligner/internal/domain"
	"github.com/airenas/go-app/pkg/goapp"
)

// Span is a sentence range to create.
type Span struct {
	Begin int
	End   int
}

// SentenceChange is the delete+create set produced by Repartition.
type SentenceChange struct {
	DeleteIDs []string
	Create    []Span
}

// Empty reports whether the change carries no operations.
func (c *SentenceChange) Empty() bool {
	return c == nil || (len(c.DeleteIDs) == 0 && len(c.Create) == 0)
}

// Repartition rebuilds the sentence partition around the edited region.
// sentences carry pre-edit coordinates, created and shifted carry post-edit
// coordinates, totalInserted is the summed rune length of all inserted
// strings. Returns nil when no sentence change is needed.
func Repartition(sentences []domain.SentenceToken, created []NewToken,
	shifted []domain.AlignmentToken, newTextLen, totalInserted int) *SentenceChange {
	if len(created) == 0 {
		return nil
	}
	insStart, insEnd := created[0].Begin, created[0].End
	for _, t := range created[1:] {
		if t.Begin < insStart {
			insStart = t.Begin
		}
		if t.End > insEnd {
			insEnd = t.End
		}
	}

	var affected []domain.SentenceToken
	for _, s := range sentences {
		if domain.OverlapsInt(s.Begin, s.End, insStart, insEnd) {
			affected = append(affected, s)
		}
	}

	all := gatherTokens(created, shifted)

	if len(affected) == 0 {
		if len(sentences) == 0 {
			// no sentence layer content yet, cover the whole text with
			// sentences bounded by the new tokens only
			return &SentenceChange{Create: buildSpans(gatherTokens(created, nil), 0, newTextLen)}
		}
		// insertion landed in a gap or at an edge
		return &SentenceChange{Create: buildSpans(tokensWithin(all, insStart, insEnd), insStart, insEnd)}
	}

	winStart, winEnd := affected[0].Begin, affected[0].End
	for _, s := range affected[1:] {
		if s.Begin < winStart {
			winStart = s.Begin
		}
		if s.End > winEnd {
			winEnd = s.End
		}
	}
	if winEnd > insStart {
		// sentences extending beyond the insertion point move by the
		// inserted amount, same correction as for alignment tokens
		winEnd += totalInserted
	}
	if winStart < 0 {
		winStart = 0
	}
	if winEnd > newTextLen {
		winEnd = newTextLen
	}
	if winStart >= winEnd {
		goapp.Log.Warn().Int("start", winStart).Int("end", winEnd).
			Msg("empty retokenization window, skipping sentence update")
		return nil
	}

	res := &SentenceChange{}
	for _, s := range affected {
		res.DeleteIDs = append(res.DeleteIDs, s.ID)
	}
	res.Create = buildSpans(tokensWithin(all, winStart, winEnd), winStart, winEnd)
	return res
}

func gatherTokens(created []NewToken, shifted []domain.AlignmentToken) []Span {
	res := make([]Span, 0, len(created)+len(shifted))
	for _, t := range created {
		res = append(res, Span{Begin: t.Begin, End: t.End})
	}
	for _, t := range shifted {
		res = append(res, Span{Begin: t.Begin, End: t.End})
	}
	return res
}

func tokensWithin(tokens []Span, from, to int) []Span {
	var res []Span
	for _, t := range tokens {
		if t.Begin >= from && t.End <= to {
			res = append(res, t)
		}
	}
	return res
}

// buildSpans covers [from, to) with sentences bounded by token ends: the
// first sentence runs from the window start to the first token's end, each
// next one from the previous token's end to the current token's end, and a
// final one closes the window if the last token stops short of it.
func buildSpans(tokens []Span, from, to int) []Span {
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Begin < tokens[j].Begin })
	var res []Span
	pos := from
	for _, t := range tokens {
		if t.End <= pos {
			continue
		}
		res = append(res, Span{Begin: pos, End: t.End})
		pos = t.End
	}
	if pos < to {
		res = append(res, Span{Begin: pos, End: to})
	}
	return res
}
