package match

import (
	"context"
	"math/rand"

	"kogoma/pkg/shogi"
)

// Policy chooses the next move for the side to move. A nil move with a nil
// error means the policy has nothing to play.
type Policy interface {
	SelectMove(ctx context.Context, s shogi.State) (shogi.Move, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, s shogi.State) (shogi.Move, error)

func (f PolicyFunc) SelectMove(ctx context.Context, s shogi.State) (shogi.Move, error) {
	return f(ctx, s)
}

// RandomPolicy picks uniformly among the candidate moves.
// It is not safe for concurrent use because *rand.Rand is not.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a RandomPolicy; games replay exactly when rng is
// seeded the same way.
func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{rng: rng}
}

func (p *RandomPolicy) SelectMove(_ context.Context, s shogi.State) (shogi.Move, error) {
	moves := shogi.GenerateMoves(s, s.Turn())
	if len(moves) == 0 {
		return nil, nil
	}
	return moves[p.rng.Intn(len(moves))], nil
}
