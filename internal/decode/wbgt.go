package decode

import (
	"fmt"
	"strconv"
)

// Environmental loggers export bilingual headers depending on firmware
// language. Each semantic slot carries both native and English
// synonyms; the first matching column wins. The WBGT matcher precedes
// the ambient-temperature one because WBGT column labels often contain
// a temperature keyword too.
var wbgtMatchers = []ColumnMatcher{
	{Slot: "date", Keywords: []string{"日付", "date"}},
	{Slot: "time", Keywords: []string{"時刻", "time"}},
	{Slot: "wbgt", Keywords: []string{"wbgt", "暑さ指数"}},
	{Slot: "ambient_temp", Keywords: []string{"気温", "ambient", "temperature", "temp"}},
	{Slot: "humidity", Keywords: []string{"湿度", "humidity"}},
	{Slot: "radiant_temp", Keywords: []string{"黒球", "globe", "radiant"}},
}

// wbgtMandatory are the slots whose absence is a hard SchemaError. The
// remaining slots are optional and parsed leniently.
var wbgtMandatory = []string{"date", "time", "wbgt"}

// DecodeWBGT decodes an environmental-index CSV export. These loggers
// do not print an identifier into the file, so the station label is
// supplied by the caller, as with heart-rate tracks.
func DecodeWBGT(content, rawSensorID string) (*Result, error) {
	records, err := parseCSV(content)
	if err != nil {
		return nil, &DecodeError{Msg: "malformed CSV", Err: err}
	}
	if len(records) == 0 {
		return nil, &DecodeError{Msg: "empty file"}
	}

	cols := ResolveColumns(records[0], wbgtMatchers)
	var missing []string
	for _, slot := range wbgtMandatory {
		if _, ok := cols[slot]; !ok {
			missing = append(missing, slot)
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

		when, ok := CombineDateClock(cell(row, cols["date"]), cell(row, cols["time"]))
		if !ok {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: "unparseable date/time"})
			continue
		}

		index := cleanCell(cell(row, cols["wbgt"]))
		value, err := strconv.ParseFloat(index, 64)
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: fmt.Sprintf("unparseable WBGT value %q", index)})
			continue
		}

		fields := map[string]float64{FieldWBGT: value}

		// Optional fields degrade to absent on parse failure.
		addOptionalField(fields, FieldAmbientTemp, row, cols, "ambient_temp")
		addOptionalField(fields, FieldHumidity, row, cols, "humidity")
		addOptionalField(fields, FieldRadiantTemp, row, cols, "radiant_temp")

		res.Readings = append(res.Readings, Reading{
			RawSensorID: rawSensorID,
			Timestamp:   when,
			Fields:      fields,
		})
	}

	return res, nil
}

func addOptionalField(fields map[string]float64, name string, row []string, cols map[string]int, slot string) {
	idx, ok := cols[slot]
	if !ok {
		return
	}
	raw := cleanCell(cell(row, idx))
	if isPlaceholder(raw) {
		return
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		fields[name] = v
	}
}
