package decode

import (
	"fmt"
	"strconv"
)

// Skin-temperature exports carry four required columns. The header names
// differ between firmware revisions and export languages, so each slot
// is located by keyword.
var skinTempMatchers = []ColumnMatcher{
	{Slot: "name", Keywords: []string{"氏名", "名前", "wearer", "name"}},
	{Slot: "sensor_id", Keywords: []string{"センサー", "sensor", "device"}},
	{Slot: "timestamp", Keywords: []string{"日時", "時刻", "timestamp", "datetime", "time"}},
	{Slot: "temperature", Keywords: []string{"温度", "temperature", "temp"}},
}

// DecodeSkinTemp decodes a wearable skin-temperature CSV export.
// Missing any required column is a hard SchemaError. Rows with empty or
// placeholder values in any required cell become RowErrors.
func DecodeSkinTemp(content string) (*Result, error) {
	records, err := parseCSV(content)
	if err != nil {
		return nil, &DecodeError{Msg: "malformed CSV", Err: err}
	}
	if len(records) == 0 {
		return nil, &DecodeError{Msg: "empty file"}
	}

	header := records[0]
	cols := ResolveColumns(header, skinTempMatchers)
	var missing []string
	for _, m := range skinTempMatchers {
		if _, ok := cols[m.Slot]; !ok {
			missing = append(missing, m.Slot)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	res := &Result{}
	for i, row := range records[1:] {
		line := i + 2
		if isEmptyRow(row) {
			continue
		}

		// The vendor app double-wraps cells on some Android builds, so
		// values arrive as ' "value"' or '"value"'. cleanCell strips one
		// layer of space+quote.
		name := cleanCell(cell(row, cols["name"]))
		sensorID := cleanCell(cell(row, cols["sensor_id"]))
		ts := cleanCell(cell(row, cols["timestamp"]))
		temp := cleanCell(cell(row, cols["temperature"]))

		if isPlaceholder(name) || isPlaceholder(sensorID) || isPlaceholder(ts) || isPlaceholder(temp) {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: "empty or placeholder value in required column"})
			continue
		}

		when, ok := ParseTimestamp(ts)
		if !ok {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: fmt.Sprintf("unparseable timestamp %q", ts)})
			continue
		}

		value, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: fmt.Sprintf("unparseable temperature %q", temp)})
			continue
		}

		res.Readings = append(res.Readings, Reading{
			RawSensorID: sensorID,
			Label:       name,
			Timestamp:   when,
			Fields:      map[string]float64{FieldTemperature: value},
		})
	}

	return res, nil
}
