package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// Capsule exports interleave up to three channels in one file. The
// sensor-id header row floats within the preamble, so it is located by
// marker token rather than by line number. Each channel block spans
// five columns: the sensor-id cell, then date, hour, temperature and
// status in the four following columns.
const (
	capsuleChannelWidth  = 5
	capsuleMaxChannels   = 3
	capsuleHeaderScanMax = 10

	// Literal printed by the logger when a sample slot has no data.
	capsuleNoDataSentinel = "--"
)

// capsuleMarkerTokens identify the sensor-id header row.
var capsuleMarkerTokens = []string{"カプセル", "capsule", "sensor id"}

// capsuleSystemKeywords mark device system-message lines. These lines
// are neither data nor errors and are not counted.
var capsuleSystemKeywords = []string{"critical", "low battery", "wake up", "wake-up", "system"}

type capsuleChannel struct {
	sensorID string
	offset   int
}

// DecodeCapsule decodes a multi-channel capsule-temperature CSV export.
func DecodeCapsule(content string) (*Result, error) {
	records, err := parseCSV(content)
	if err != nil {
		return nil, &DecodeError{Msg: "malformed CSV", Err: err}
	}

	headerIdx, channels := findCapsuleHeader(records)
	if headerIdx < 0 {
		return nil, &SchemaError{Missing: []string{"sensor-id header row"}}
	}
	if len(channels) == 0 {
		return nil, &SchemaError{Missing: []string{"sensor identifiers"}}
	}

	res := &Result{}
	for i, row := range records[headerIdx+1:] {
		line := headerIdx + i + 2
		if isEmptyRow(row) {
			continue
		}
		if isCapsuleSystemLine(row) {
			continue
		}

		for _, ch := range channels {
			decodeCapsuleChannel(res, row, line, ch)
		}
	}

	return res, nil
}

// findCapsuleHeader scans the first lines for the marker token and
// extracts the embedded sensor identifiers at fixed channel offsets.
func findCapsuleHeader(records [][]string) (int, []capsuleChannel) {
	limit := len(records)
	if limit > capsuleHeaderScanMax {
		limit = capsuleHeaderScanMax
	}

	for i := 0; i < limit; i++ {
		if !rowContainsToken(records[i], capsuleMarkerTokens) {
			continue
		}

		var channels []capsuleChannel
		for c := 0; c < capsuleMaxChannels; c++ {
			offset := 1 + c*capsuleChannelWidth
			id := cleanCell(cell(records[i], offset))
			if id == "" || isPlaceholder(id) {
				continue
			}
			channels = append(channels, capsuleChannel{sensorID: id, offset: offset})
		}
		return i, channels
	}
	return -1, nil
}

// decodeCapsuleChannel decodes one channel block of a data row. A parse
// failure on a present, non-sentinel value is a RowError scoped to that
// channel, never to the whole row.
func decodeCapsuleChannel(res *Result, row []string, line int, ch capsuleChannel) {
	date := cleanCell(cell(row, ch.offset+1))
	hour := cleanCell(cell(row, ch.offset+2))
	temp := cleanCell(cell(row, ch.offset+3))

	// A channel can simply have stopped logging before the others.
	if date == "" && hour == "" && temp == "" {
		return
	}

	// The logger prints "--" where the capsule produced no sample; this
	// is an intentional skip, not a failure.
	if temp == capsuleNoDataSentinel {
		return
	}

	when, ok := CombineDateClock(date, hour)
	if !ok {
		res.RowErrors = append(res.RowErrors, RowError{
			Line: line,
			Msg:  fmt.Sprintf("channel %s: unparseable date/hour %q %q", ch.sensorID, date, hour),
		})
		return
	}

	value, err := strconv.ParseFloat(temp, 64)
	if err != nil {
		res.RowErrors = append(res.RowErrors, RowError{
			Line: line,
			Msg:  fmt.Sprintf("channel %s: unparseable temperature %q", ch.sensorID, temp),
		})
		return
	}

	res.Readings = append(res.Readings, Reading{
		RawSensorID: ch.sensorID,
		Timestamp:   when,
		Fields:      map[string]float64{FieldTemperature: value},
	})
}

func isCapsuleSystemLine(row []string) bool {
	return rowContainsToken(row, capsuleSystemKeywords)
}

func rowContainsToken(row []string, tokens []string) bool {
	for _, c := range row {
		lc := strings.ToLower(c)
		for _, tok := range tokens {
			if strings.Contains(lc, tok) {
				return true
			}
		}
	}
	return false
}
