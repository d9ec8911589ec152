package align

import (
	"sort"
	"strings"

	"github.com/airenas/asr-aligner/internal/domain"
)

// Insertion is one surviving segment with its resolved insertion offset
// against the pre-edit text.
type Insertion struct {
	Position  int
	Alignment domain.Alignment
}

// NewToken describes an alignment token to create, with offsets valid for
// the patched text body.
type NewToken struct {
	Begin     int
	End       int
	TimeBegin float64
	TimeEnd   float64
	Text      string
	Meta      map[string]any
}

// Patch splices all insertions into body in one pass. Insertions are
// ordered by position, ties kept in input order. Every segment but the last
// gets one trailing space; the space is part of the inserted string but not
// of the token range. Returns the patched body, the tokens to create and
// the modification list with original (pre-edit) positions for shifting.
func Patch(body string, items []Insertion) (string, []NewToken, []domain.TextModification) {
	if len(items) == 0 {
		return body, nil, nil
	}
	ordered := make([]Insertion, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	runes := []rune(body)
	tokens := make([]NewToken, 0, len(ordered))
	mods := make([]domain.TextModification, 0, len(ordered))
	offset := 0
	for i, ins := range ordered {
		text := strings.TrimSpace(ins.Alignment.Text)
		insert := text
		if i < len(ordered)-1 {
			insert += " "
		}
		at := ins.Position + offset
		runes = splice(runes, at, []rune(insert))
		tokens = append(tokens, NewToken{
			Begin:     at,
			End:       at + len([]rune(text)),
			TimeBegin: ins.Alignment.Start,
			TimeEnd:   ins.Alignment.End,
			Text:      text,
			Meta:      ins.Alignment.Meta,
		})
		mods = append(mods, domain.TextModification{
			Position:  ins.Position,
			Insert:    insert,
			TokenText: text,
			TimeBegin: ins.Alignment.Start,
			TimeEnd:   ins.Alignment.End,
			Meta:      ins.Alignment.Meta,
		})
		offset += len([]rune(insert))
	}
	return string(runes), tokens, mods
}

func splice(runes []rune, at int, insert []rune) []rune {
	if at < 0 {
		at = 0
	}
	if at > len(runes) {
		at = len(runes)
	}
	res := make([]rune, 0, len(runes)+len(insert))
	res = append(res, runes[:at]...)
	res = append(res, insert...)
	res = append(res, runes[at:]...)
	return res
}
