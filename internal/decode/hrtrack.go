package decode

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TrackPolicy controls heart-rate timestamp normalization. Exports are
// stored in competition-local time at a fixed offset from UTC.
//
// Zone-naive timestamps are *assumed* to be UTC and shifted by the
// target offset. That assumption matches observed chest-strap exports
// but has never been confirmed by the vendor; it is policy, not fact,
// and can be overridden per deployment.
type TrackPolicy struct {
	// TargetOffset is the fixed local offset measurements are stored in.
	TargetOffset time.Duration

	// AssumeNaiveUTC shifts zone-naive timestamps by TargetOffset. When
	// false, naive timestamps are taken as already-local and stored
	// unchanged.
	AssumeNaiveUTC bool
}

// DefaultTrackPolicy matches the deployments this service was built
// for: JST, naive-means-UTC.
func DefaultTrackPolicy() TrackPolicy {
	return TrackPolicy{TargetOffset: 9 * time.Hour, AssumeNaiveUTC: true}
}

// hrTrack mirrors the vendor track container. The namespace is fixed
// per vendor but encoding/xml matches on local names, which also covers
// firmware that omits the xmlns declaration.
type hrTrack struct {
	XMLName xml.Name   `xml:"track"`
	Samples []hrSample `xml:"sample"`
}

type hrSample struct {
	Time      string `xml:"time"`
	HeartRate string `xml:"hr"`
}

// zoneSuffix matches a trailing Z or explicit numeric offset.
var zoneSuffix = regexp.MustCompile(`(Z|[+-]\d{2}:?\d{2})$`)

// DecodeHeartRateTrack decodes a vendor XML heart-rate track. The
// sensor id is operator-entered and supplied by the caller; the file
// itself carries no identifier. Malformed XML is a hard DecodeError; a
// sample missing its time or heart-rate element is a RowError.
func DecodeHeartRateTrack(content, rawSensorID string, policy TrackPolicy) (*Result, error) {
	var track hrTrack
	if err := xml.Unmarshal([]byte(content), &track); err != nil {
		return nil, &DecodeError{Msg: "malformed XML track", Err: err}
	}

	res := &Result{}
	for i, sample := range track.Samples {
		line := i + 1

		ts := strings.TrimSpace(sample.Time)
		bpm := strings.TrimSpace(sample.HeartRate)
		if ts == "" || bpm == "" {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: "sample missing time or heart-rate element"})
			continue
		}

		when, ok := normalizeTrackTime(ts, policy)
		if !ok {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: fmt.Sprintf("unparseable sample time %q", ts)})
			continue
		}

		value, err := strconv.ParseFloat(bpm, 64)
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Line: line, Msg: fmt.Sprintf("unparseable heart rate %q", bpm)})
			continue
		}

		res.Readings = append(res.Readings, Reading{
			RawSensorID: rawSensorID,
			Timestamp:   when,
			Fields:      map[string]float64{FieldHeartRate: value},
		})
	}

	return res, nil
}

// normalizeTrackTime applies the timestamp policy: zoned timestamps are
// converted to the target offset; naive ones are shifted per the
// AssumeNaiveUTC policy. The result is returned as wall-clock local
// time in the UTC location so it compares cleanly with the CSV-sourced
// naive timestamps.
func normalizeTrackTime(s string, policy TrackPolicy) (time.Time, bool) {
	if zoneSuffix.MatchString(s) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Some firmware writes offsets without the colon.
			t, err = time.Parse("2006-01-02T15:04:05Z0700", s)
			if err != nil {
				return time.Time{}, false
			}
		}
		return stripZone(t.UTC().Add(policy.TargetOffset)), true
	}

	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		if t2, ok := ParseTimestamp(s); ok {
			t = t2
		} else {
			return time.Time{}, false
		}
	}
	if policy.AssumeNaiveUTC {
		t = t.Add(policy.TargetOffset)
	}
	return stripZone(t), true
}

// stripZone rebuilds t as naive wall-clock time in UTC.
func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
