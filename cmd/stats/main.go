package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"kogoma/pkg/kif"
	"kogoma/pkg/record"
)

type lengthStats struct {
	binSize     int
	count       int
	sum         int64
	min         int
	max         int
	initialized bool
	bins        map[int]int
}

type pairAgg struct {
	games     int
	blackWins int
	whiteWins int
	undecided int
}

// game is the subset of a record the summary needs.
type game struct {
	black, white string
	result       string
	reason       string
	plies        int
}

func newLengthStats(binSize int) *lengthStats {
	return &lengthStats{
		binSize: binSize,
		bins:    make(map[int]int),
	}
}

func (ls *lengthStats) Add(plies int) {
	ls.count++
	ls.sum += int64(plies)
	if !ls.initialized {
		ls.min = plies
		ls.max = plies
		ls.initialized = true
	} else {
		if plies < ls.min {
			ls.min = plies
		}
		if plies > ls.max {
			ls.max = plies
		}
	}
	binStart := (plies / ls.binSize) * ls.binSize
	ls.bins[binStart]++
}

func main() {
	kifDir := flag.String("kif-dir", "", "input directory for KIF files")
	parquetPath := flag.String("parquet", "", "input self-play parquet file")
	binSize := flag.Int("bin-size", 20, "game length bin size in plies")
	parallel := flag.Int64("parallel", 4, "parquet read parallelism")
	flag.Parse()

	if *binSize <= 0 {
		fatal(fmt.Errorf("bin-size must be > 0"))
	}
	if (*kifDir == "") == (*parquetPath == "") {
		fatal(fmt.Errorf("specify exactly one of -kif-dir or -parquet"))
	}

	var games []game
	failed := 0
	if *parquetPath != "" {
		records, err := record.ReadParquet(*parquetPath, *parallel)
		if err != nil {
			fatal(err)
		}
		for _, rec := range records {
			games = append(games, game{
				black:  rec.BlackPolicy,
				white:  rec.WhitePolicy,
				result: rec.Result,
				reason: rec.WinReason,
				plies:  int(rec.MoveCount),
			})
		}
	} else {
		files, err := kif.CollectKIF(*kifDir)
		if err != nil {
			fatal(err)
		}
		if len(files) == 0 {
			fatal(fmt.Errorf("no .kif files found in %s", *kifDir))
		}
		for _, path := range files {
			rec, err := kif.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", path, err)
				failed++
				continue
			}
			winner, decided := rec.Outcome()
			games = append(games, game{
				black:  rec.Black.Name,
				white:  rec.White.Name,
				result: resultLabel(winner.String(), decided),
				reason: rec.Terminal,
				plies:  len(rec.Moves),
			})
		}
	}

	lengths := newLengthStats(*binSize)
	reasons := make(map[string]int)
	pairs := make(map[string]*pairAgg)
	for _, g := range games {
		lengths.Add(g.plies)
		reasons[g.reason]++
		key := g.black + " vs " + g.white
		agg, ok := pairs[key]
		if !ok {
			agg = &pairAgg{}
			pairs[key] = agg
		}
		agg.games++
		switch g.result {
		case record.ResultBlackWin:
			agg.blackWins++
		case record.ResultWhiteWin:
			agg.whiteWins++
		default:
			agg.undecided++
		}
	}

	if *parquetPath != "" {
		fmt.Printf("input parquet: %s\n", *parquetPath)
	} else {
		fmt.Printf("kif dir: %s\n", *kifDir)
	}
	fmt.Printf("failed files: %d\n", failed)
	fmt.Printf("games: %d\n", len(games))
	if lengths.count > 0 {
		fmt.Printf("plies: min=%d max=%d mean=%.1f\n", lengths.min, lengths.max, float64(lengths.sum)/float64(lengths.count))
	}
	fmt.Println("matchups (games,black_win,white_win,undecided):")
	for _, key := range sortedKeys(pairs) {
		agg := pairs[key]
		fmt.Printf("%s,%d,%d,%d,%d\n", key, agg.games, agg.blackWins, agg.whiteWins, agg.undecided)
	}
	fmt.Println("end reasons:")
	for _, key := range sortedKeys(reasons) {
		fmt.Printf("%s,%d\n", key, reasons[key])
	}
	fmt.Printf("length distribution (bin size=%d):\n", lengths.binSize)
	keys := make([]int, 0, len(lengths.bins))
	for key := range lengths.bins {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	for _, start := range keys {
		end := start + lengths.binSize - 1
		fmt.Printf("%d-%d,%d\n", start, end, lengths.bins[start])
	}
}

func resultLabel(winner string, decided bool) string {
	if !decided {
		return record.ResultUndecided
	}
	return winner + "_win"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
