package decode

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

const capsuleHeader = "カプセルID,CAP-A,日付,時間,温度,状態,CAP-B,日付,時間,温度,状態"

func capsuleRow(n int, dateA, hourA, tempA, dateB, hourB, tempB string) string {
	return fmt.Sprintf("%d,,%s,%s,%s,OK,,%s,%s,%s,OK", n, dateA, hourA, tempA, dateB, hourB, tempB)
}

func TestDecodeCapsule_TwoChannels(t *testing.T) {
	lines := []string{
		"Device Log,,,,,,,,,,",
		"Export 2023/07/15,,,,,,,,,,",
		capsuleHeader,
	}
	// Ten valid rows across both channels, with blank lines interleaved
	// and a date-separator flip halfway through.
	for i := 0; i < 10; i++ {
		date := "2023/07/15"
		if i >= 5 {
			date = "2023-07-15"
		}
		hour := fmt.Sprintf("%02d:00:00", 8+i)
		lines = append(lines, capsuleRow(i+1, date, hour, "37.01", date, hour, "36.95"))
		if i%3 == 0 {
			lines = append(lines, ",,,,,,,,,,")
		}
	}

	res, err := DecodeCapsule(strings.Join(lines, "\n") + "\n")
	if err != nil {
		t.Fatalf("DecodeCapsule() error = %v", err)
	}

	if len(res.Readings) != 20 {
		t.Fatalf("Readings = %d, want 20", len(res.Readings))
	}
	if len(res.RowErrors) != 0 {
		t.Fatalf("RowErrors = %v, want none", res.RowErrors)
	}

	byID := map[string]int{}
	for _, r := range res.Readings {
		byID[r.RawSensorID]++
	}
	if byID["CAP-A"] != 10 || byID["CAP-B"] != 10 {
		t.Errorf("per-channel counts = %v, want 10 each", byID)
	}

	want := time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC)
	if !res.Readings[0].Timestamp.Equal(want) {
		t.Errorf("first timestamp = %v, want %v", res.Readings[0].Timestamp, want)
	}
}

func TestDecodeCapsule_SentinelsAndErrors(t *testing.T) {
	lines := []string{
		capsuleHeader,
		// Channel B printed the no-data sentinel: intentional skip.
		capsuleRow(1, "2023/07/15", "08:00:00", "37.01", "2023/07/15", "08:00:00", "--"),
		// Channel A has an unparseable date; channel B is fine.
		capsuleRow(2, "bad", "08:01:00", "37.02", "2023/07/15", "08:01:00", "36.96"),
		// Device system message, neither data nor error.
		"Critical temperature warning,,,,,,,,,,",
		// Channel B stopped logging entirely.
		capsuleRow(3, "2023/07/15", "08:02:00", "37.03", "", "", ""),
	}

	res, err := DecodeCapsule(strings.Join(lines, "\n") + "\n")
	if err != nil {
		t.Fatalf("DecodeCapsule() error = %v", err)
	}

	if len(res.Readings) != 3 {
		t.Fatalf("Readings = %d, want 3", len(res.Readings))
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("RowErrors = %d, want 1", len(res.RowErrors))
	}
	if !strings.Contains(res.RowErrors[0].Msg, "CAP-A") {
		t.Errorf("row error should name the channel: %v", res.RowErrors[0])
	}
}

func TestDecodeCapsule_MissingHeader(t *testing.T) {
	content := "just,some,data\n1,2,3\n"

	_, err := DecodeCapsule(content)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("DecodeCapsule() error = %v, want SchemaError", err)
	}
}

func TestDecodeCapsule_HeaderWithoutIDs(t *testing.T) {
	content := "カプセルID,,,,,,,,,,\n1,,2023/07/15,08:00:00,37.0,OK,,,,,\n"

	_, err := DecodeCapsule(content)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("DecodeCapsule() error = %v, want SchemaError", err)
	}
}
