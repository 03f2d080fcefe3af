package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/heatlab/sensorhub/internal/decode"
)

func TestParseMappingFile(t *testing.T) {
	content := "被験者ID,センサー種別,センサーID,ゼッケン\n" +
		"S001,skin,WT-001,101\n" +
		"S002,capsule,CAP-01,\n" +
		"S003,teleport,XX-01,103\n" +
		",hr,HRM-01,104\n"

	mappings, rowErrs, err := parseMappingFile(content, "comp-1")
	if err != nil {
		t.Fatalf("parseMappingFile() error = %v", err)
	}

	if len(mappings) != 2 {
		t.Fatalf("mappings = %d, want 2", len(mappings))
	}
	if len(rowErrs) != 2 {
		t.Fatalf("rowErrs = %d, want 2", len(rowErrs))
	}

	first := mappings[0]
	if first.SubjectID != "S001" || first.SensorType != SensorSkinTemperature ||
		first.RawSensorID != "WT-001" || first.RaceNumber != "101" {
		t.Errorf("unexpected first mapping: %+v", first)
	}
	if first.CompetitionID != "comp-1" {
		t.Errorf("CompetitionID = %q, want %q", first.CompetitionID, "comp-1")
	}

	// Race number is optional.
	if mappings[1].RaceNumber != "" {
		t.Errorf("RaceNumber = %q, want empty", mappings[1].RaceNumber)
	}
}

func TestParseMappingFile_MissingColumns(t *testing.T) {
	content := "被験者ID,ゼッケン\nS001,101\n"

	_, _, err := parseMappingFile(content, "comp-1")
	var schemaErr *decode.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("parseMappingFile() error = %v, want SchemaError", err)
	}
}

func TestIsSkippableMappingError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"referential", &ReferentialError{SubjectID: "S9"}, true},
		{"conflict", &ConflictError{CompetitionID: "c", SensorType: SensorHeartRate, RawSensorID: "x"}, true},
		{"wrapped referential", fmt.Errorf("row 3: %w", &ReferentialError{SubjectID: "S9"}), true},
		{"other", errors.New("connection reset"), false},
		{"not found", &NotFoundError{Kind: "batch", ID: "b1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSkippableMappingError(tt.err); got != tt.want {
				t.Errorf("isSkippableMappingError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
