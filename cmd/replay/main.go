// replay checks KIF records or stored self-play games against the move
// rules, printing one line per game, and can export parquet games to KIF.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"kogoma/pkg/kif"
	"kogoma/pkg/record"
	"kogoma/pkg/shogi"
)

func main() {
	kifDir := flag.String("kif-dir", "", "directory of KIF files to replay")
	parquetPath := flag.String("parquet", "", "self-play parquet file to replay")
	exportDir := flag.String("export", "", "with -parquet, write each game as KIF into this directory")
	sjis := flag.Bool("sjis", false, "encode exported KIF files as Shift-JIS")
	parallel := flag.Int64("parallel", 4, "parquet read parallelism")
	flag.Parse()

	if (*kifDir == "") == (*parquetPath == "") {
		fatal(fmt.Errorf("specify exactly one of -kif-dir or -parquet"))
	}
	logger, err := zap.NewProduction()
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()

	var failed int
	if *kifDir != "" {
		failed, err = replayKIF(*kifDir, logger)
	} else {
		failed, err = replayParquet(*parquetPath, *parallel, *exportDir, *sjis, logger)
	}
	if err != nil {
		fatal(err)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d games failed to replay\n", failed)
		os.Exit(1)
	}
}

func replayKIF(dir string, logger *zap.Logger) (int, error) {
	files, err := kif.CollectKIF(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .kif files found in %s", dir)
	}
	failed := 0
	for _, path := range files {
		rec, err := kif.ReadFile(path)
		if err != nil {
			logger.Warn("parse failed", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		g, err := kif.Replay(rec)
		if err != nil {
			logger.Warn("replay failed", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		fmt.Printf("%s,%d,%s,%s\n", filepath.Base(path), len(g.Moves), outcome(g.Winner, g.Decided), g.Final.SFEN(len(g.Moves)+1))
	}
	return failed, nil
}

func replayParquet(path string, parallel int64, exportDir string, sjis bool, logger *zap.Logger) (int, error) {
	records, err := record.ReadParquet(path, parallel)
	if err != nil {
		return 0, err
	}
	if exportDir != "" {
		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return 0, err
		}
	}
	failed := 0
	for _, rec := range records {
		start, moves, err := rec.Replay()
		if err != nil {
			logger.Warn("replay failed", zap.String("game_id", rec.GameID), zap.Error(err))
			failed++
			continue
		}
		final := start
		for _, mv := range moves {
			final = shogi.ApplyMove(final, mv)
		}
		if got := final.SFEN(len(moves) + 1); got != rec.FinalSFEN {
			logger.Warn("final position mismatch",
				zap.String("game_id", rec.GameID),
				zap.String("stored", rec.FinalSFEN),
				zap.String("replayed", got),
			)
			failed++
			continue
		}
		fmt.Printf("%s,%d,%s,%s\n", rec.GameID, len(moves), rec.Result, rec.WinReason)

		if exportDir == "" {
			continue
		}
		winner, decided := final.Winner()
		if !decided && rec.Result != record.ResultUndecided {
			// Games lost by having no moves are decided without a capture.
			winner, decided = shogi.Black, true
			if rec.Result == record.ResultWhiteWin {
				winner = shogi.White
			}
		}
		g := kif.Game{
			Black:   kif.Player{Name: rec.BlackPolicy},
			White:   kif.Player{Name: rec.WhitePolicy},
			Start:   start,
			Moves:   moves,
			Final:   final,
			Winner:  winner,
			Decided: decided,
		}
		if err := kif.WriteFile(filepath.Join(exportDir, rec.GameID+".kif"), g, sjis); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func outcome(winner shogi.Player, decided bool) string {
	if !decided {
		return record.ResultUndecided
	}
	if winner == shogi.White {
		return record.ResultWhiteWin
	}
	return record.ResultBlackWin
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
