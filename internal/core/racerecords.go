package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/heatlab/sensorhub/internal/decode"
	"github.com/heatlab/sensorhub/internal/textenc"
)

// racerecords.go merges variable-column competition result files into
// per-participant segment and lap records keyed by race number. Result
// files have an unknown but internally consistent layout; every column
// is located by keyword, never by position.

// raceNumberMatcher locates the join key. The race number is the only
// field whose absence fails a row outright.
var raceNumberMatcher = decode.ColumnMatcher{
	Slot:     "race_number",
	Keywords: []string{"ゼッケン", "ナンバー", "bib", "race no", "race number", "no."},
}

// Discipline and boundary keyword families. A segment column is a
// header matching one discipline keyword and one boundary keyword;
// unmatched pairs stay null on the record.
var (
	disciplineKeywords = map[string][]string{
		"swim": {"スイム", "swim"},
		"bike": {"バイク", "bike", "cycle"},
		"run":  {"ラン", "run"},
	}
	startKeywords  = []string{"スタート", "start", "開始"}
	finishKeywords = []string{"フィニッシュ", "finish", "ゴール", "goal", "終了"}
)

// lapMatcher collects checkpoint columns into the ordered lap mapping.
var lapMatcher = decode.ColumnMatcher{
	Slot:     "lap",
	Keywords: []string{"ラップ", "lap", "周回", "split", "チェック", "checkpoint"},
}

// segmentSlot names one of the six segment-boundary columns.
type segmentSlot struct {
	discipline string
	boundary   string // "start" or "finish"
}

// resultColumns is the resolved layout of one result file.
type resultColumns struct {
	raceNumber int
	segments   map[segmentSlot]int
	laps       []lapColumn
}

type lapColumn struct {
	label string
	index int
}

// mapResultColumns resolves a result-file header. Missing race-number
// column is a hard SchemaError; everything else is optional.
func mapResultColumns(header []string) (*resultColumns, error) {
	numIdx := raceNumberMatcher.FindColumn(header)
	if numIdx < 0 {
		return nil, &decode.SchemaError{Missing: []string{"race_number"}}
	}

	rc := &resultColumns{
		raceNumber: numIdx,
		segments:   make(map[segmentSlot]int),
	}

	for i, h := range header {
		if i == numIdx {
			continue
		}
		lh := strings.ToLower(strings.TrimSpace(h))
		if lh == "" {
			continue
		}
		if slot, ok := matchSegment(lh); ok {
			if _, taken := rc.segments[slot]; !taken {
				rc.segments[slot] = i
			}
			continue
		}
		if lapMatcher.Match(h) {
			rc.laps = append(rc.laps, lapColumn{label: strings.TrimSpace(h), index: i})
		}
	}

	return rc, nil
}

func matchSegment(header string) (segmentSlot, bool) {
	for disc, kws := range disciplineKeywords {
		if !containsAny(header, kws) {
			continue
		}
		if containsAny(header, startKeywords) {
			return segmentSlot{discipline: disc, boundary: "start"}, true
		}
		if containsAny(header, finishKeywords) {
			return segmentSlot{discipline: disc, boundary: "finish"}, true
		}
	}
	return segmentSlot{}, false
}

func containsAny(s string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// AssembleRaceRecords turns one result file's records into participant
// records plus soft row errors. Pure: no persistence.
func AssembleRaceRecords(competitionID, fileName string, records [][]string) ([]RaceRecord, []decode.RowError, error) {
	if len(records) == 0 {
		return nil, nil, &decode.DecodeError{Msg: "empty file"}
	}
	cols, err := mapResultColumns(records[0])
	if err != nil {
		return nil, nil, err
	}

	var out []RaceRecord
	var rowErrs []decode.RowError
	for i, row := range records[1:] {
		line := i + 2
		if rowIsEmpty(row) {
			continue
		}

		number := cleanRaceNumber(raceCell(row, cols.raceNumber))
		if number == "" {
			// The join key is the one field that fails a row outright.
			rowErrs = append(rowErrs, decode.RowError{Line: line, Msg: "blank race number"})
			continue
		}

		r := RaceRecord{
			CompetitionID: competitionID,
			RaceNumber:    number,
			SourceFile:    fileName,
		}

		for slot, idx := range cols.segments {
			// A per-field parse failure degrades to omission.
			t, ok := decode.ParseTimestamp(raceCell(row, idx))
			if !ok {
				continue
			}
			ts := t
			switch slot {
			case segmentSlot{"swim", "start"}:
				r.SwimStart = &ts
			case segmentSlot{"swim", "finish"}:
				r.SwimFinish = &ts
			case segmentSlot{"bike", "start"}:
				r.BikeStart = &ts
			case segmentSlot{"bike", "finish"}:
				r.BikeFinish = &ts
			case segmentSlot{"run", "start"}:
				r.RunStart = &ts
			case segmentSlot{"run", "finish"}:
				r.RunFinish = &ts
			}
		}

		for _, lc := range cols.laps {
			t, ok := decode.ParseTimestamp(raceCell(row, lc.index))
			if !ok {
				continue
			}
			r.Laps = append(r.Laps, Lap{Label: lc.label, At: t})
		}

		out = append(out, r)
	}

	return out, rowErrs, nil
}

func raceCell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func rowIsEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cleanRaceNumber(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null", "-":
		return ""
	}
	return s
}

// IngestRaceRecordFiles merges one or more result files for a
// competition. Files process sequentially, each in its own
// transaction; a hard error in file N leaves files 1..N-1 committed and
// is reported alongside the partial tally.
func (s *Service) IngestRaceRecordFiles(ctx context.Context, competitionID string, files []UploadFile, overwrite bool) (*RaceIngestReport, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	report := &RaceIngestReport{}
	seen := make(map[string]bool)

	if overwrite {
		if err := s.withTx(ctx, func(tx pgx.Tx) error {
			return deleteRaceRecordScope(ctx, tx, competitionID)
		}); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		if int64(len(f.Data)) > s.maxFileSize {
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s: file exceeds %d byte limit", f.Name, s.maxFileSize))
			continue
		}

		content, err := textenc.Resolve(f.Data)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}

		records, rowErrs, err := decodeRaceFile(content, competitionID, f.Name)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}

		for _, re := range rowErrs {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", f.Name, re))
		}

		err = s.withTx(ctx, func(tx pgx.Tx) error {
			for i := range records {
				if err := upsertRaceRecord(ctx, tx, &records[i]); err != nil {
					return err
				}
			}
			// Mapping files arrive in arbitrary order relative to result
			// files; pick up race-number assignments already on record.
			stamped, err := stampRaceRecordsFromMappings(ctx, tx, competitionID)
			if err != nil {
				return err
			}
			if stamped > 0 {
				slog.Info("backfilled subjects onto race records",
					"competition_id", competitionID, "file", f.Name, "rows", stamped)
			}
			return nil
		})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}

		report.Saved += len(records)
		for _, r := range records {
			if !seen[r.RaceNumber] {
				seen[r.RaceNumber] = true
				report.Participants++
			}
		}

		slog.Info("race records ingested",
			"competition_id", competitionID, "file", f.Name,
			"saved", len(records), "failed_rows", len(rowErrs))
	}

	report.Errors = s.truncateErrors(report.Errors)
	return report, nil
}

func decodeRaceFile(content, competitionID, fileName string) ([]RaceRecord, []decode.RowError, error) {
	records, err := decode.ParseCSVContent(content)
	if err != nil {
		return nil, nil, err
	}
	return AssembleRaceRecords(competitionID, fileName, records)
}
