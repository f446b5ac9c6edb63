package usi

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"kogoma/pkg/shogi"
)

// ErrDeclaration is returned when the engine answers "bestmove win". The
// entering-king declaration does not exist in this ruleset.
var ErrDeclaration = errors.New("engine declared a win")

// Searcher returns the engine's bestmove token for a SFEN position.
type Searcher interface {
	BestMove(ctx context.Context, sfen string, moveTimeMs int) (string, error)
}

// Policy plays the moves a Searcher chooses. It satisfies match.Policy.
type Policy struct {
	searcher   Searcher
	moveTimeMs int
	logger     *zap.Logger
}

// NewPolicy creates a Policy that gives the engine moveTimeMs per move.
// A nil logger discards output.
func NewPolicy(searcher Searcher, moveTimeMs int, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{searcher: searcher, moveTimeMs: moveTimeMs, logger: logger}
}

// SelectMove asks the engine for a move. A resignation, or a state with no
// candidate moves, yields a nil move.
func (p *Policy) SelectMove(ctx context.Context, s shogi.State) (shogi.Move, error) {
	if len(shogi.GenerateMoves(s, s.Turn())) == 0 {
		return nil, nil
	}
	sfen := s.SFEN(1)
	best, err := p.searcher.BestMove(ctx, sfen, p.moveTimeMs)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", sfen, err)
	}
	switch best {
	case "resign":
		p.logger.Info("engine resigned", zap.String("sfen", sfen), zap.Stringer("side", s.Turn()))
		return nil, nil
	case "win":
		return nil, fmt.Errorf("%s: %w", sfen, ErrDeclaration)
	}
	mv, err := shogi.ParseUSIMove(s, best)
	if err != nil {
		return nil, fmt.Errorf("bestmove for %s: %w", sfen, err)
	}
	return mv, nil
}
