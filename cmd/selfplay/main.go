// selfplay plays games between two policies and stores them as parquet,
// optionally writing a KIF file per game.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"kogoma/pkg/book"
	"kogoma/pkg/config"
	"kogoma/pkg/kif"
	"kogoma/pkg/match"
	"kogoma/pkg/record"
	"kogoma/pkg/usi"
)

type options struct {
	games    int
	seed     int64
	workers  int
	black    string
	white    string
	maxPlies int
	millis   int
	kifDir   string
	sjis     bool
	engine   string
	book     *book.Book
}

type job struct {
	index int
	seed  int64
}

func main() {
	configPath := flag.String("config", "", "path to config.json (searched upwards when empty)")
	games := flag.Int("games", 100, "number of games to play")
	seed := flag.Int64("seed", 0, "base seed; game i uses seed+i (0 takes config or the clock)")
	workers := flag.Int("workers", 1, "number of parallel workers")
	output := flag.String("output", "selfplay.parquet", "output parquet file")
	kifDir := flag.String("kif-dir", "", "write one KIF file per game into this directory")
	sjis := flag.Bool("sjis", false, "encode KIF files as Shift-JIS")
	black := flag.String("black", "random", "black policy: random, usi or book")
	white := flag.String("white", "random", "white policy: random, usi or book")
	bookPath := flag.String("book", "", "opening book for the book policy")
	maxPlies := flag.Int("max-plies", 0, "stop undecided games after this many plies (0 takes config, then no limit)")
	millis := flag.Int("millis", 0, "engine think time per move in ms (0 takes config)")
	verbose := flag.Bool("verbose", false, "log every move")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()

	cfg, root, err := config.Resolve(*configPath)
	if err != nil {
		fatal(err)
	}
	opts := options{
		games:    *games,
		seed:     pick64(*seed, cfg.Seed, time.Now().UnixNano()),
		workers:  *workers,
		black:    *black,
		white:    *white,
		maxPlies: pick(*maxPlies, cfg.MaxPlies, 0),
		millis:   pick(*millis, cfg.Millis, 1000),
		kifDir:   *kifDir,
		sjis:     *sjis,
	}
	for _, kind := range []string{opts.black, opts.white} {
		if kind != "random" && kind != "usi" && kind != "book" {
			fatal(fmt.Errorf("unknown policy %q (want random, usi or book)", kind))
		}
	}
	if opts.black == "book" || opts.white == "book" {
		if *bookPath == "" {
			fatal(errors.New("the book policy needs -book"))
		}
		b, err := book.ReadFile(*bookPath)
		if err != nil {
			fatal(err)
		}
		logger.Info("book loaded", zap.String("path", *bookPath), zap.Int("positions", b.Len()))
		opts.book = b
	}
	if opts.black == "usi" || opts.white == "usi" {
		enginePath, err := cfg.EnginePath(root)
		if err != nil {
			fatal(err)
		}
		if _, err := os.Stat(enginePath); err != nil {
			fatal(fmt.Errorf("engine binary not found at %s: %w", enginePath, err))
		}
		opts.engine = enginePath
	}
	if opts.games <= 0 {
		return
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}
	if opts.workers > opts.games {
		opts.workers = opts.games
	}
	for _, dir := range []string{filepath.Dir(*output), opts.kifDir} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("self-play starting",
		zap.Int("games", opts.games),
		zap.Int("workers", opts.workers),
		zap.Int64("seed", opts.seed),
		zap.String("black", opts.black),
		zap.String("white", opts.white),
		zap.String("output", *output),
	)

	results := make(chan record.GameRecord, opts.workers)
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- record.WriteParquet(*output, results, int64(opts.workers))
	}()

	jobs := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failed   int
		workErrs []error
	)
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			wlog := logger.With(zap.Int("worker", w))
			n, err := runWorker(ctx, opts, jobs, results, wlog)
			// A worker that lost its engine still drains its share.
			for range jobs {
				n++
			}
			mu.Lock()
			failed += n
			if err != nil {
				workErrs = append(workErrs, err)
			}
			mu.Unlock()
		}(w)
	}

feed:
	for i := 0; i < opts.games; i++ {
		select {
		case jobs <- job{index: i, seed: opts.seed + int64(i)}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	if err := <-writeErr; err != nil {
		fatal(err)
	}
	if err := errors.Join(workErrs...); err != nil {
		fatal(err)
	}
	fmt.Printf("games: %d failed: %d output: %s\n", opts.games, failed, *output)
}

// runWorker plays jobs until the channel closes. It owns its engine session
// and returns the number of games that failed.
func runWorker(ctx context.Context, opts options, jobs <-chan job, results chan<- record.GameRecord, logger *zap.Logger) (int, error) {
	var session *usi.Session
	if opts.engine != "" {
		var err error
		session, err = usi.StartSession(ctx, logger, opts.engine)
		if err != nil {
			return 0, err
		}
		defer session.Close()
		if err := session.Handshake(ctx, usi.Option{Name: "Threads", Value: "1"}); err != nil {
			return 0, err
		}
	}

	failed := 0
	for j := range jobs {
		if session != nil {
			if err := session.NewGame(); err != nil {
				return failed, err
			}
		}
		rng := rand.New(rand.NewSource(j.seed))
		m := &match.Match{
			Black:    newPolicy(opts.black, rng, session, opts, logger),
			White:    newPolicy(opts.white, rng, session, opts, logger),
			MaxPlies: opts.maxPlies,
			Logger:   logger,
		}
		res, err := m.Play(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return failed, nil
			}
			logger.Warn("game failed", zap.Int("game", j.index), zap.Error(err))
			failed++
			continue
		}
		results <- record.FromResult(res, opts.black, opts.white, j.seed)

		if opts.kifDir != "" {
			if err := writeKIF(opts, j, res); err != nil {
				logger.Warn("kif write failed", zap.String("game_id", res.ID), zap.Error(err))
			}
		}
	}
	return failed, nil
}

// newPolicy builds the policy for one side. Book positions that run out fall
// back to random play.
func newPolicy(kind string, rng *rand.Rand, session *usi.Session, opts options, logger *zap.Logger) match.Policy {
	switch kind {
	case "usi":
		return usi.NewPolicy(session, opts.millis, logger)
	case "book":
		return book.NewPolicy(opts.book, match.NewRandomPolicy(rng), rng)
	}
	return match.NewRandomPolicy(rng)
}

func writeKIF(opts options, j job, res match.Result) error {
	g := kif.Game{
		Black:   kif.Player{Name: opts.black + "-" + strconv.FormatInt(j.seed, 10)},
		White:   kif.Player{Name: opts.white + "-" + strconv.FormatInt(j.seed, 10)},
		Start:   res.Initial,
		Moves:   res.Moves,
		Final:   res.Final,
		Winner:  res.Winner,
		Decided: res.Decided,
		Started: time.Now(),
	}
	path := filepath.Join(opts.kifDir, fmt.Sprintf("%06d_%s.kif", j.index, res.ID))
	return kif.WriteFile(path, g, opts.sjis)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// pick returns the first positive value.
func pick(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func pick64(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
