// book builds a YaneuraOu DB2016 opening book from KIF records or stored
// self-play games.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"kogoma/pkg/book"
	"kogoma/pkg/kif"
	"kogoma/pkg/record"
	"kogoma/pkg/shogi"
)

type game struct {
	start shogi.State
	moves []shogi.Move
}

func main() {
	kifDir := flag.String("kif-dir", "", "input directory for KIF files")
	parquetPath := flag.String("parquet", "", "input self-play parquet file")
	outputPath := flag.String("output", "book.db", "output book file")
	threshold := flag.Int("threshold", 3, "minimum occurrence count to include in book")
	maxPly := flag.Int("max-ply", 60, "maximum ply to process per game")
	workers := flag.Int("workers", 0, "number of parallel workers (0=NumCPU)")
	parallel := flag.Int64("parallel", 4, "parquet read parallelism")
	flag.Parse()

	if (*kifDir == "") == (*parquetPath == "") {
		fatal(errors.New("specify exactly one of -kif-dir or -parquet"))
	}
	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}
	start := time.Now()

	var (
		loaders []func() (game, error)
		err     error
	)
	if *kifDir != "" {
		loaders, err = kifLoaders(*kifDir)
	} else {
		loaders, err = parquetLoaders(*parquetPath, *parallel)
	}
	if err != nil {
		fatal(err)
	}
	if len(loaders) == 0 {
		fatal(errors.New("no games found"))
	}
	fmt.Fprintf(os.Stderr, "games: %d, workers: %d, max-ply: %d, threshold: %d\n",
		len(loaders), *workers, *maxPly, *threshold)

	b, errCount := build(loaders, *maxPly, *workers)
	fmt.Fprintf(os.Stderr, "  unique positions: %d, game errors: %d\n", b.Len(), errCount)

	kept := b.Prune(uint32(*threshold))
	fmt.Fprintf(os.Stderr, "  qualified positions (>=%d): %d\n", *threshold, kept)
	if kept == 0 {
		fmt.Fprintln(os.Stderr, "no positions meet the threshold; nothing to write")
		return
	}
	if err := b.WriteFile(*outputPath); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d positions) in %v\n",
		*outputPath, kept, time.Since(start).Round(time.Millisecond))
}

func kifLoaders(dir string) ([]func() (game, error), error) {
	files, err := kif.CollectKIF(dir)
	if err != nil {
		return nil, err
	}
	loaders := make([]func() (game, error), 0, len(files))
	for _, path := range files {
		path := path
		loaders = append(loaders, func() (game, error) {
			rec, err := kif.ReadFile(path)
			if err != nil {
				return game{}, err
			}
			g, err := kif.Replay(rec)
			if err != nil {
				return game{}, err
			}
			return game{start: g.Start, moves: g.Moves}, nil
		})
	}
	return loaders, nil
}

func parquetLoaders(path string, parallel int64) ([]func() (game, error), error) {
	records, err := record.ReadParquet(path, parallel)
	if err != nil {
		return nil, err
	}
	loaders := make([]func() (game, error), 0, len(records))
	for _, rec := range records {
		rec := rec
		loaders = append(loaders, func() (game, error) {
			start, moves, err := rec.Replay()
			if err != nil {
				return game{}, err
			}
			return game{start: start, moves: moves}, nil
		})
	}
	return loaders, nil
}

// build replays games on workers, each filling a private book that is merged
// into the result when the worker finishes.
func build(loaders []func() (game, error), maxPly, workers int) (*book.Book, int) {
	out := book.New()
	var mu sync.Mutex
	var processed, errCount atomic.Int64

	ch := make(chan func() (game, error), workers*4)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := book.New()
			for load := range ch {
				g, err := load()
				if err == nil {
					err = local.AddGame(g.start, g.moves, maxPly)
				}
				if err != nil {
					errCount.Add(1)
				}
				if n := processed.Add(1); n%10000 == 0 {
					fmt.Fprintf(os.Stderr, "\r  %d/%d", n, len(loaders))
				}
			}
			mu.Lock()
			out.Merge(local)
			mu.Unlock()
		}()
	}
	for _, load := range loaders {
		ch <- load
	}
	close(ch)
	wg.Wait()
	fmt.Fprintf(os.Stderr, "\r  %d/%d\n", processed.Load(), len(loaders))
	return out, int(errCount.Load())
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
