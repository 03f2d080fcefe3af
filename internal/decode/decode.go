// Package decode turns raw sensor export files into structured readings.
//
// Each decoder is a pure transformation from decoded file content to a
// sequence of row results. Decoders never touch persistence, which keeps
// them independently testable against fixture files. A row result is
// either a Reading or a soft RowError; hard failures (unreadable
// container, missing required columns) abort the whole file.
package decode

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"
)

// Field names used in Reading.Fields, shared with the persistence layer.
const (
	FieldTemperature = "temperature"
	FieldHeartRate   = "heart_rate"
	FieldWBGT        = "wbgt"
	FieldAmbientTemp = "ambient_temp"
	FieldHumidity    = "humidity"
	FieldRadiantTemp = "radiant_temp"
)

// Reading is one decoded measurement row. RawSensorID is the identifier
// exactly as the device printed it; it is not validated against any
// roster at decode time. Label carries the wearer name for exports that
// include one.
type Reading struct {
	RawSensorID string
	Label       string
	Timestamp   time.Time
	Fields      map[string]float64
}

// Result is the outcome of decoding one file.
type Result struct {
	Readings  []Reading
	RowErrors []RowError
}

// RowError is a soft, per-record failure. It is tallied by the caller
// and never aborts the file.
type RowError struct {
	Line int
	Msg  string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Msg)
}

// DecodeError indicates an unreadable encoding or a malformed container.
// It aborts the whole file.
type DecodeError struct {
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Msg, e.Err)
	}
	return "decode: " + e.Msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SchemaError indicates a required column or field is absent.
// It aborts the whole file.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "schema: missing required columns: " + strings.Join(e.Missing, ", ")
}

// parseCSV parses file content into records. Field counts vary between
// vendors, so per-record field counting is disabled and lazy quotes are
// tolerated.
func parseCSV(content string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// ParseCSVContent parses decoded file content into raw records for
// callers that map columns themselves. A malformed container is a
// DecodeError.
func ParseCSVContent(content string) ([][]string, error) {
	records, err := parseCSV(content)
	if err != nil {
		return nil, &DecodeError{Msg: "malformed CSV", Err: err}
	}
	return records, nil
}

// cleanCell removes artifacts seen in vendor exports: surrounding
// whitespace, an Excel formula prefix (="..."), one layer of quoting,
// and a UTF-8 BOM on the first cell of a file.
func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	}
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// isPlaceholder reports whether a cell holds a known "no value" export
// artifact rather than data.
func isPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null":
		return true
	}
	return false
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
