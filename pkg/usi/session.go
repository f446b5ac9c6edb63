package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errStdoutClosed = errors.New("engine stdout closed")

// ErrOutOfSync is returned once a cancelled search never produced its
// bestmove: later answers could belong to the abandoned position.
var ErrOutOfSync = errors.New("engine session out of sync")

// stopGrace bounds the wait for the bestmove that answers stop.
const stopGrace = 2 * time.Second

// Option is a setoption pair sent during the handshake.
type Option struct {
	Name  string
	Value string
}

// Search is the outcome of one go command.
type Search struct {
	Move   string
	Ponder string
	// Score is the last score reported before bestmove; HasScore is false
	// when the engine printed none.
	Score    Score
	HasScore bool
}

// Session drives one engine over the USI protocol. Methods must not be
// called concurrently.
type Session struct {
	send   func(string) error
	close  func() error
	events chan Event
	errCh  chan error
	// readErr is set once the output stream has ended.
	readErr error
	// broken is set when the session can no longer pair searches with answers.
	broken error
	logger *zap.Logger
}

// StartSession launches a USI engine and starts reading its output. Lines
// the engine writes to stderr are logged at debug level.
func StartSession(ctx context.Context, logger *zap.Logger, path string, args ...string) (*Session, error) {
	engine, err := Start(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	s := newSession(engine.Send, engine.Close, engine.Stdout(), logger)
	go func() {
		sc := bufio.NewScanner(engine.Stderr())
		for sc.Scan() {
			s.logger.Debug("engine stderr", zap.String("line", sc.Text()))
		}
	}()
	return s, nil
}

// NewSession runs the protocol over an arbitrary pipe pair, such as an
// in-process engine.
func NewSession(w io.Writer, r io.Reader, logger *zap.Logger) *Session {
	var mu sync.Mutex
	send := func(line string) error {
		mu.Lock()
		defer mu.Unlock()
		return writeLine(w, line)
	}
	closeFn := func() error {
		err := send("quit")
		if c, ok := w.(io.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}
	return newSession(send, closeFn, r, logger)
}

func newSession(send func(string) error, closeFn func() error, stdout io.Reader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := NewReader(stdout)
	events := make(chan Event, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			event, err := reader.Next()
			if errors.Is(err, ErrMalformedLine) {
				logger.Warn("skipping engine output", zap.Error(err))
				continue
			}
			if err != nil {
				errCh <- err
				return
			}
			events <- event
		}
	}()
	return &Session{send: send, close: closeFn, events: events, errCh: errCh, logger: logger}
}

// Close shuts down the engine behind the session.
func (s *Session) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// Handshake runs usi/usiok, applies the options and waits for readyok.
func (s *Session) Handshake(ctx context.Context, opts ...Option) error {
	if err := s.send("usi"); err != nil {
		return err
	}
	for {
		event, err := s.waitForEvent(ctx, EventUSIOK, EventID)
		if err != nil {
			return fmt.Errorf("usi handshake: %w", err)
		}
		if event.Type == EventUSIOK {
			break
		}
		s.logger.Debug("engine id", zap.String(event.Key, event.Value))
	}
	for _, opt := range opts {
		if err := s.send(fmt.Sprintf("setoption name %s value %s", opt.Name, opt.Value)); err != nil {
			return err
		}
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	if _, err := s.waitForEvent(ctx, EventReadyOK); err != nil {
		return fmt.Errorf("usi handshake: %w", err)
	}
	return nil
}

// NewGame tells the engine a new game starts.
func (s *Session) NewGame() error {
	return s.send("usinewgame")
}

// Search runs a bounded search on the SFEN position and returns the
// engine's bestmove along with the last reported score.
func (s *Session) Search(ctx context.Context, sfen string, moveTimeMs int) (Search, error) {
	if s.broken != nil {
		return Search{}, s.broken
	}
	if err := s.send("position sfen " + sfen); err != nil {
		return Search{}, err
	}
	if moveTimeMs <= 0 {
		moveTimeMs = 1
	}
	if err := s.send(fmt.Sprintf("go movetime %d", moveTimeMs)); err != nil {
		return Search{}, err
	}

	var res Search
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.abandon(sfen)
			}
			return Search{}, err
		}
		switch event.Type {
		case EventInfo:
			if score, ok := parseInfoScore(event.Raw); ok {
				res.Score, res.HasScore = score, true
			}
		case EventBestMove:
			res.Move, res.Ponder = event.Move, event.Ponder
			s.logger.Debug("bestmove",
				zap.String("sfen", sfen),
				zap.String("move", res.Move),
				zap.Stringer("score", res.Score),
			)
			return res, nil
		}
	}
}

// abandon stops the running search and discards the bestmove the engine
// sends for it, so the next go is answered for its own position.
func (s *Session) abandon(sfen string) {
	if err := s.send("stop"); err != nil {
		s.broken = fmt.Errorf("stop: %v: %w", err, ErrOutOfSync)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	event, err := s.waitForEvent(ctx, EventBestMove)
	if err != nil {
		s.broken = fmt.Errorf("no bestmove after stop: %v: %w", err, ErrOutOfSync)
		s.logger.Warn("engine ignored stop", zap.String("sfen", sfen), zap.Error(err))
		return
	}
	s.logger.Debug("discarded bestmove", zap.String("sfen", sfen), zap.String("move", event.Move))
}

// BestMove implements Searcher.
func (s *Session) BestMove(ctx context.Context, sfen string, moveTimeMs int) (string, error) {
	res, err := s.Search(ctx, sfen, moveTimeMs)
	if err != nil {
		return "", err
	}
	return res.Move, nil
}

func (s *Session) waitForEvent(ctx context.Context, want ...EventType) (Event, error) {
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			return Event{}, err
		}
		for _, w := range want {
			if event.Type == w {
				return event, nil
			}
		}
	}
}

func (s *Session) nextEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case event, ok := <-s.events:
		if ok {
			return event, nil
		}
		if s.readErr == nil {
			s.readErr = <-s.errCh
			if errors.Is(s.readErr, io.EOF) {
				s.readErr = errStdoutClosed
			}
		}
		return Event{}, s.readErr
	}
}
