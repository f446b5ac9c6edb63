package record

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"kogoma/pkg/match"
	"kogoma/pkg/shogi"
)

const (
	ResultBlackWin  = "black_win"
	ResultWhiteWin  = "white_win"
	ResultUndecided = "undecided"
)

// GameRecord is one finished self-play game.
type GameRecord struct {
	GameID      string   `parquet:"name=game_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	BlackPolicy string   `parquet:"name=black_policy, type=BYTE_ARRAY, convertedtype=UTF8"`
	WhitePolicy string   `parquet:"name=white_policy, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seed        int64    `parquet:"name=seed, type=INT64"`
	Result      string   `parquet:"name=result, type=BYTE_ARRAY, convertedtype=UTF8"`
	WinReason   string   `parquet:"name=win_reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	MoveCount   int32    `parquet:"name=move_count, type=INT32"`
	Moves       []string `parquet:"name=moves, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	StartSFEN   string   `parquet:"name=start_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
	FinalSFEN   string   `parquet:"name=final_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// FromResult flattens a played game. Positions are numbered from 1 at the
// start and continue through the final state.
func FromResult(res match.Result, blackPolicy, whitePolicy string, seed int64) GameRecord {
	moves := make([]string, 0, len(res.Moves))
	for _, mv := range res.Moves {
		moves = append(moves, shogi.FormatUSI(mv))
	}
	result := ResultUndecided
	if res.Decided {
		result = ResultBlackWin
		if res.Winner == shogi.White {
			result = ResultWhiteWin
		}
	}
	return GameRecord{
		GameID:      res.ID,
		BlackPolicy: blackPolicy,
		WhitePolicy: whitePolicy,
		Seed:        seed,
		Result:      result,
		WinReason:   string(res.Reason),
		MoveCount:   int32(len(res.Moves)),
		Moves:       moves,
		StartSFEN:   res.Initial.SFEN(1),
		FinalSFEN:   res.Final.SFEN(len(res.Moves) + 1),
	}
}

// Replay rebuilds the game from StartSFEN, checking each stored move.
func (r GameRecord) Replay() (shogi.State, []shogi.Move, error) {
	s, err := shogi.ParseSFEN(r.StartSFEN)
	if err != nil {
		return shogi.State{}, nil, fmt.Errorf("game %s: %w", r.GameID, err)
	}
	start := s
	moves := make([]shogi.Move, 0, len(r.Moves))
	for i, text := range r.Moves {
		mv, err := shogi.ParseUSIMove(s, text)
		if err != nil {
			return shogi.State{}, nil, fmt.Errorf("game %s ply %d: %w", r.GameID, i+1, err)
		}
		s = shogi.ApplyMove(s, mv)
		moves = append(moves, mv)
	}
	return start, moves, nil
}

type ParquetSchema struct {
	Name   string         `json:"name"`
	Fields []ParquetField `json:"fields"`
}

type ParquetField struct {
	Name     string      `json:"name"`
	Type     interface{} `json:"type"`
	Nullable bool        `json:"nullable"`
}

//go:embed schema.json
var schemaJSON []byte

func loadParquetSchema() (ParquetSchema, error) {
	var schema ParquetSchema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return ParquetSchema{}, fmt.Errorf("parquet schema: %w", err)
	}
	return schema, nil
}

// WriteParquet streams records into a Snappy-compressed parquet file. The
// channel is drained even when writing fails so producers never block.
func WriteParquet(path string, records <-chan GameRecord, parallel int64) (err error) {
	defer func() {
		for range records {
		}
	}()

	schema, err := loadParquetSchema()
	if err != nil {
		return err
	}
	if err := validateSchema(schema, GameRecord{}); err != nil {
		return err
	}

	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fileWriter.Close(); err == nil {
			err = cerr
		}
	}()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(GameRecord), parallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for record := range records {
		if err := parquetWriter.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", record.GameID, err)
		}
	}
	return parquetWriter.WriteStop()
}

// ReadParquet loads every GameRecord in path, in batches.
func ReadParquet(path string, parallel int64) ([]GameRecord, error) {
	fileReader, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(GameRecord), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]GameRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		if remain := num - offset; remain < batchSize {
			batchSize = remain
		}
		batch := make([]GameRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

func validateSchema(schema ParquetSchema, sample any) error {
	schemaFields := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		schemaFields[field.Name] = struct{}{}
	}
	structFields := structParquetFieldNames(sample)
	missing := diffKeys(schemaFields, structFields)
	extra := diffKeys(structFields, schemaFields)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("parquet schema mismatch: missing=%v extra=%v", missing, extra)
	}
	return nil
}

func structParquetFieldNames(sample any) map[string]struct{} {
	fields := map[string]struct{}{}
	v := reflect.TypeOf(sample)
	for i := 0; i < v.NumField(); i++ {
		if name := parseParquetName(v.Field(i).Tag.Get("parquet")); name != "" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

func parseParquetName(tag string) string {
	for _, part := range strings.Split(tag, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && key == "name" {
			return value
		}
	}
	return ""
}

func diffKeys(a, b map[string]struct{}) []string {
	var diff []string
	for key := range a {
		if _, ok := b[key]; !ok {
			diff = append(diff, key)
		}
	}
	sort.Strings(diff)
	return diff
}
