package usi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by Send once Close has been called.
var ErrClosed = errors.New("engine is closed")

// exitGrace is how long Close waits after quit before killing the process.
const exitGrace = 3 * time.Second

// Engine is a running USI engine process. Send may be called from several
// goroutines; the output streams belong to a single reader.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu     sync.Mutex
	closed bool
}

// Start launches the engine at path. The process runs in the binary's
// directory so engines find evaluation files stored next to them, and it is
// killed if ctx ends.
func Start(ctx context.Context, path string, args ...string) (*Engine, error) {
	if path == "" {
		return nil, errors.New("engine path is required")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(path)
	e := &Engine{cmd: cmd}
	var err error
	if e.stdin, err = cmd.StdinPipe(); err != nil {
		return nil, err
	}
	if e.stdout, err = cmd.StdoutPipe(); err != nil {
		return nil, err
	}
	if e.stderr, err = cmd.StderrPipe(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	return e, nil
}

// Stdout is the protocol stream; wrap it with NewReader.
func (e *Engine) Stdout() io.Reader { return e.stdout }

// Stderr carries the engine's diagnostics, outside the protocol.
func (e *Engine) Stderr() io.Reader { return e.stderr }

// Send writes one command line. It fails with ErrClosed after Close.
func (e *Engine) Send(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return writeLine(e.stdin, line)
}

// Close asks the engine to quit, closes its stdin and waits for it to exit,
// killing it after exitGrace. Calling Close again is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	// A dead engine cannot read quit; the wait below still reaps it.
	_ = writeLine(e.stdin, "quit")
	_ = e.stdin.Close()
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	timer := time.NewTimer(exitGrace)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		_ = e.cmd.Process.Kill()
		<-done
		return fmt.Errorf("engine did not exit within %v", exitGrace)
	}
}

func writeLine(w io.Writer, line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := io.WriteString(w, line)
	return err
}
