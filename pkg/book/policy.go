package book

import (
	"context"
	"math/rand"

	"kogoma/pkg/match"
	"kogoma/pkg/shogi"
)

// Policy plays book moves weighted by how often they were played and hands
// positions outside the book to a fallback policy.
type Policy struct {
	book     *Book
	fallback match.Policy
	rng      *rand.Rand
}

// NewPolicy creates a Policy drawing from b. rng is used only for book
// positions; the fallback keeps its own source.
func NewPolicy(b *Book, fallback match.Policy, rng *rand.Rand) *Policy {
	return &Policy{book: b, fallback: fallback, rng: rng}
}

// SelectMove ignores book moves that are not candidates in s, so a book
// built under other rules never yields an illegal move.
func (p *Policy) SelectMove(ctx context.Context, s shogi.State) (shogi.Move, error) {
	type weighted struct {
		move  shogi.Move
		count uint32
	}
	var (
		choices []weighted
		total   uint64
	)
	for _, mc := range p.book.Lookup(s) {
		mv, err := shogi.ParseUSIMove(s, mc.Move)
		if err != nil || mc.Count == 0 {
			continue
		}
		choices = append(choices, weighted{mv, mc.Count})
		total += uint64(mc.Count)
	}
	if total == 0 {
		return p.fallback.SelectMove(ctx, s)
	}
	n := uint64(p.rng.Int63n(int64(total)))
	for _, c := range choices {
		if n < uint64(c.count) {
			return c.move, nil
		}
		n -= uint64(c.count)
	}
	return choices[len(choices)-1].move, nil
}
