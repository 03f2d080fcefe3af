package core

import (
	"errors"
	"testing"
	"time"

	"github.com/heatlab/sensorhub/internal/decode"
)

func TestAssembleRaceRecords_JapaneseHeaders(t *testing.T) {
	records := [][]string{
		{"ゼッケン", "スイムスタート", "スイムフィニッシュ", "バイクスタート", "バイクフィニッシュ", "ランスタート", "ランゴール", "ラップ1", "ラップ2"},
		{"101", "2023/7/15 8:00:00", "2023/7/15 8:40:00", "2023/7/15 8:45:00", "2023/7/15 10:15:00", "2023/7/15 10:20:00", "2023/7/15 11:10:00", "2023/7/15 9:30:00", "2023/7/15 10:45:00"},
	}

	out, rowErrs, err := AssembleRaceRecords("comp-1", "results.csv", records)
	if err != nil {
		t.Fatalf("AssembleRaceRecords() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("RowErrors = %v, want none", rowErrs)
	}
	if len(out) != 1 {
		t.Fatalf("records = %d, want 1", len(out))
	}

	r := out[0]
	if r.RaceNumber != "101" {
		t.Errorf("RaceNumber = %q, want %q", r.RaceNumber, "101")
	}
	if r.SourceFile != "results.csv" {
		t.Errorf("SourceFile = %q, want %q", r.SourceFile, "results.csv")
	}

	checks := []struct {
		name string
		got  *time.Time
		want time.Time
	}{
		{"SwimStart", r.SwimStart, time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC)},
		{"SwimFinish", r.SwimFinish, time.Date(2023, 7, 15, 8, 40, 0, 0, time.UTC)},
		{"BikeStart", r.BikeStart, time.Date(2023, 7, 15, 8, 45, 0, 0, time.UTC)},
		{"BikeFinish", r.BikeFinish, time.Date(2023, 7, 15, 10, 15, 0, 0, time.UTC)},
		{"RunStart", r.RunStart, time.Date(2023, 7, 15, 10, 20, 0, 0, time.UTC)},
		{"RunFinish", r.RunFinish, time.Date(2023, 7, 15, 11, 10, 0, 0, time.UTC)},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s = nil, want %v", c.name, c.want)
			continue
		}
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if len(r.Laps) != 2 {
		t.Fatalf("Laps = %d, want 2", len(r.Laps))
	}
	if r.Laps[0].Label != "ラップ1" {
		t.Errorf("Laps[0].Label = %q, want %q", r.Laps[0].Label, "ラップ1")
	}
	if !r.Laps[0].At.Before(r.Laps[1].At) {
		t.Error("laps should preserve column order")
	}
}

func TestAssembleRaceRecords_EnglishHeaders(t *testing.T) {
	records := [][]string{
		{"Bib No.", "Swim Start", "Swim Finish", "Run Finish"},
		{"202", "2023/7/15 8:00:00", "2023/7/15 8:35:00", "2023/7/15 11:00:00"},
	}

	out, _, err := AssembleRaceRecords("comp-1", "en.csv", records)
	if err != nil {
		t.Fatalf("AssembleRaceRecords() error = %v", err)
	}
	r := out[0]
	if r.SwimStart == nil || r.SwimFinish == nil || r.RunFinish == nil {
		t.Fatal("matched segment columns should be set")
	}
	if r.BikeStart != nil || r.RunStart != nil {
		t.Error("absent columns should stay nil")
	}
}

func TestAssembleRaceRecords_RowHandling(t *testing.T) {
	// Row 2 has a blank race number (failed row), row 3 an unparseable
	// segment value (field omission only), row 4 is fully empty (silent
	// skip) and row 5 is valid.
	records := [][]string{
		{"ゼッケン", "スイムスタート"},
		{"", "2023/7/15 8:00:00"},
		{"301", "not a time"},
		{"", ""},
		{"302", "2023/7/15 8:00:00"},
	}

	out, rowErrs, err := AssembleRaceRecords("comp-1", "f.csv", records)
	if err != nil {
		t.Fatalf("AssembleRaceRecords() error = %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("records = %d, want 2", len(out))
	}
	if len(rowErrs) != 1 {
		t.Fatalf("RowErrors = %d, want 1", len(rowErrs))
	}
	if rowErrs[0].Line != 2 {
		t.Errorf("RowErrors[0].Line = %d, want 2", rowErrs[0].Line)
	}

	if out[0].RaceNumber != "301" {
		t.Errorf("RaceNumber = %q, want %q", out[0].RaceNumber, "301")
	}
	if out[0].SwimStart != nil {
		t.Error("unparseable segment should be omitted, not fail the row")
	}
	if out[1].SwimStart == nil {
		t.Error("valid segment should be set")
	}
}

func TestAssembleRaceRecords_MissingRaceNumberColumn(t *testing.T) {
	records := [][]string{
		{"Swim Start", "Swim Finish"},
		{"2023/7/15 8:00:00", "2023/7/15 8:30:00"},
	}

	_, _, err := AssembleRaceRecords("comp-1", "f.csv", records)
	var schemaErr *decode.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("AssembleRaceRecords() error = %v, want SchemaError", err)
	}
}

func TestMapResultColumns_FirstSegmentColumnWins(t *testing.T) {
	header := []string{"Bib", "Swim Start", "Swim Start (corrected)"}
	cols, err := mapResultColumns(header)
	if err != nil {
		t.Fatalf("mapResultColumns() error = %v", err)
	}
	if got := cols.segments[segmentSlot{"swim", "start"}]; got != 1 {
		t.Errorf("swim start column = %d, want 1", got)
	}
}
