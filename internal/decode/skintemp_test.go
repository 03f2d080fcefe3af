package decode

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeSkinTemp(t *testing.T) {
	content := "氏名,センサーID,日時,温度\n" +
		"山田太郎,WT-001,2023/7/15 8:30:00,36.2\n" +
		` "佐藤花子","WT-002","2023/7/15 8:30:00","36.5"` + "\n" +
		"鈴木一郎,WT-003,2023/7/15 8:30:00,nan\n" +
		",,,\n" +
		"田中次郎,WT-004,not-a-date,36.1\n"

	res, err := DecodeSkinTemp(content)
	if err != nil {
		t.Fatalf("DecodeSkinTemp() error = %v", err)
	}

	if len(res.Readings) != 2 {
		t.Fatalf("Readings = %d, want 2", len(res.Readings))
	}
	if len(res.RowErrors) != 2 {
		t.Fatalf("RowErrors = %d, want 2", len(res.RowErrors))
	}

	first := res.Readings[0]
	if first.RawSensorID != "WT-001" {
		t.Errorf("RawSensorID = %q, want %q", first.RawSensorID, "WT-001")
	}
	if first.Label != "山田太郎" {
		t.Errorf("Label = %q, want %q", first.Label, "山田太郎")
	}
	want := time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.Fields[FieldTemperature] != 36.2 {
		t.Errorf("temperature = %v, want 36.2", first.Fields[FieldTemperature])
	}

	// Double-quoted cells from the vendor app must clean to plain values.
	second := res.Readings[1]
	if second.RawSensorID != "WT-002" {
		t.Errorf("quoted RawSensorID = %q, want %q", second.RawSensorID, "WT-002")
	}
	if second.Fields[FieldTemperature] != 36.5 {
		t.Errorf("quoted temperature = %v, want 36.5", second.Fields[FieldTemperature])
	}
}

func TestDecodeSkinTemp_EnglishHeaders(t *testing.T) {
	content := "Name,Sensor ID,Timestamp,Temperature\n" +
		"Alice,WT-010,2023-7-15 9:00:00,36.8\n"

	res, err := DecodeSkinTemp(content)
	if err != nil {
		t.Fatalf("DecodeSkinTemp() error = %v", err)
	}
	if len(res.Readings) != 1 {
		t.Fatalf("Readings = %d, want 1", len(res.Readings))
	}
	if res.Readings[0].RawSensorID != "WT-010" {
		t.Errorf("RawSensorID = %q, want %q", res.Readings[0].RawSensorID, "WT-010")
	}
}

func TestDecodeSkinTemp_MissingColumn(t *testing.T) {
	content := "氏名,日時,温度\nA,2023/7/15 8:30:00,36.0\n"

	_, err := DecodeSkinTemp(content)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("DecodeSkinTemp() error = %v, want SchemaError", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "sensor_id" {
		t.Errorf("Missing = %v, want [sensor_id]", schemaErr.Missing)
	}
}

func TestDecodeSkinTemp_EmptyFile(t *testing.T) {
	_, err := DecodeSkinTemp("")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("DecodeSkinTemp() error = %v, want DecodeError", err)
	}
}
