package decode

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeWBGT_BilingualHeaders(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "japanese headers",
			content: "日付,時刻,WBGT,気温,湿度,黒球温度\n" +
				"2023/7/15,10:30:00,28.5,32.1,65.0,40.2\n",
		},
		{
			name: "english headers",
			content: "Date,Time,wbgt,Ambient Temp,Humidity,Globe Temp\n" +
				"2023/7/15,10:30:00,28.5,32.1,65.0,40.2\n",
		},
	}

	want := time.Date(2023, 7, 15, 10, 30, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeWBGT(tt.content, "station-1")
			if err != nil {
				t.Fatalf("DecodeWBGT() error = %v", err)
			}
			if len(res.Readings) != 1 {
				t.Fatalf("Readings = %d, want 1", len(res.Readings))
			}

			r := res.Readings[0]
			if !r.Timestamp.Equal(want) {
				t.Errorf("Timestamp = %v, want %v", r.Timestamp, want)
			}
			if r.RawSensorID != "station-1" {
				t.Errorf("RawSensorID = %q, want %q", r.RawSensorID, "station-1")
			}
			expect := map[string]float64{
				FieldWBGT:        28.5,
				FieldAmbientTemp: 32.1,
				FieldHumidity:    65.0,
				FieldRadiantTemp: 40.2,
			}
			for k, v := range expect {
				if r.Fields[k] != v {
					t.Errorf("Fields[%s] = %v, want %v", k, r.Fields[k], v)
				}
			}
		})
	}
}

func TestDecodeWBGT_OptionalFieldsDegrade(t *testing.T) {
	content := "日付,時刻,WBGT,湿度\n" +
		"2023/7/15,10:30:00,28.5,bad\n" +
		"2023/7/15,10:40:00,not-a-number,60.0\n"

	res, err := DecodeWBGT(content, "station-1")
	if err != nil {
		t.Fatalf("DecodeWBGT() error = %v", err)
	}

	// Unparseable optional field drops silently; unparseable WBGT is a
	// row error.
	if len(res.Readings) != 1 {
		t.Fatalf("Readings = %d, want 1", len(res.Readings))
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("RowErrors = %d, want 1", len(res.RowErrors))
	}
	if _, ok := res.Readings[0].Fields[FieldHumidity]; ok {
		t.Error("unparseable humidity should be absent, not zero")
	}
	if res.Readings[0].Fields[FieldWBGT] != 28.5 {
		t.Errorf("wbgt = %v, want 28.5", res.Readings[0].Fields[FieldWBGT])
	}
}

func TestDecodeWBGT_MissingMandatory(t *testing.T) {
	content := "日付,気温,湿度\n2023/7/15,32.0,60.0\n"

	_, err := DecodeWBGT(content, "station-1")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("DecodeWBGT() error = %v, want SchemaError", err)
	}
}
