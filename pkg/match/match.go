package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kogoma/pkg/shogi"
)

var ErrIllegalMove = errors.New("policy returned a move outside the candidate set")

// Reason describes how a game ended.
type Reason string

const (
	ReasonKingCapture Reason = "king_capture"
	ReasonNoMoves     Reason = "no_moves"
	ReasonMaxPlies    Reason = "max_plies"
)

// Match plays one game between two policies.
type Match struct {
	Black Policy
	White Policy
	// Start is the opening state; nil means shogi.NewInitialState.
	Start *shogi.State
	// MaxPlies stops an undecided game after this many moves; 0 means no limit.
	MaxPlies int
	Logger   *zap.Logger
}

// Result describes a finished game. Decided is false only when the game hit
// MaxPlies.
type Result struct {
	ID      string
	Initial shogi.State
	Moves   []shogi.Move
	Final   shogi.State
	Winner  shogi.Player
	Decided bool
	Reason  Reason
}

// Play runs the game to completion. A terminal state is never handed to a
// policy or to the engine, and every policy move is checked against
// GenerateMoves before it is applied.
func (m *Match) Play(ctx context.Context) (Result, error) {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := Result{ID: uuid.NewString()}
	logger = logger.With(zap.String("game_id", res.ID))

	s := shogi.NewInitialState()
	if m.Start != nil {
		s = *m.Start
	}
	res.Initial = s
	for !s.Terminal() {
		if m.MaxPlies > 0 && len(res.Moves) >= m.MaxPlies {
			res.Reason = ReasonMaxPlies
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		side := s.Turn()
		mv, err := m.policyFor(side).SelectMove(ctx, s)
		if err != nil {
			return res, fmt.Errorf("ply %d (%s): %w", len(res.Moves)+1, side, err)
		}
		if mv == nil {
			s = shogi.NoMovesFor(s)
			res.Reason = ReasonNoMoves
			break
		}
		if !shogi.Contains(shogi.GenerateMoves(s, side), mv) {
			return res, fmt.Errorf("ply %d (%s) %s: %w", len(res.Moves)+1, side, shogi.FormatUSI(mv), ErrIllegalMove)
		}

		s = shogi.ApplyMove(s, mv)
		res.Moves = append(res.Moves, mv)
		logger.Debug("move",
			zap.Int("ply", len(res.Moves)),
			zap.Stringer("side", side),
			zap.String("usi", shogi.FormatUSI(mv)),
		)
		if s.Terminal() {
			res.Reason = ReasonKingCapture
		}
	}

	res.Final = s
	res.Winner, res.Decided = s.Winner()
	fields := []zap.Field{zap.Int("plies", len(res.Moves)), zap.String("reason", string(res.Reason))}
	if res.Decided {
		fields = append(fields, zap.Stringer("winner", res.Winner))
	}
	logger.Info("game over", fields...)
	return res, nil
}

func (m *Match) policyFor(p shogi.Player) Policy {
	if p == shogi.Black {
		return m.Black
	}
	return m.White
}
