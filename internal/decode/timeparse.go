package decode

// timeparse.go handles the messy reality of device-printed timestamps:
// slash and dash date separators, single and double digit fields,
// date-only and clock-only cells, and full datetimes with or without a
// trailing seconds field. All parsers return a zero time for input they
// cannot interpret; callers decide whether that is a soft or hard
// failure.

import (
	"strings"
	"time"
)

var datetimeLayouts = []string{
	"2006/1/2 15:04:05",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04",
	"2006-1-2 15:04",
	"2006.1.2 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"20060102150405",
}

var dateLayouts = []string{
	"2006/1/2",
	"2006-1-2",
	"2006.1.2",
	"1/2/2006",
	"20060102",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
}

// ParseTimestamp parses a full datetime cell leniently. The returned
// time is naive local time in the UTC location, matching how the
// devices print it.
func ParseTimestamp(s string) (time.Time, bool) {
	s = cleanCell(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a date-only cell. Slash, dash and dot separated
// forms are accepted.
func ParseDate(s string) (time.Time, bool) {
	s = cleanCell(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClock parses a time-of-day cell.
func ParseClock(s string) (time.Duration, bool) {
	s = cleanCell(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}
	return 0, false
}

// CombineDateClock merges a date cell and a clock cell into one
// timestamp. Date separators are normalized to one form before parsing
// so mixed slash/dash exports from the same device line up.
func CombineDateClock(date, clock string) (time.Time, bool) {
	d, ok := ParseDate(NormalizeDateSeparators(date))
	if !ok {
		return time.Time{}, false
	}
	c, ok := ParseClock(clock)
	if !ok {
		return time.Time{}, false
	}
	return d.Add(c), true
}

// NormalizeDateSeparators rewrites dash and dot separated dates to the
// slash form. Capsule exports flip between 2023/07/15 and 2023-07-15
// within one file depending on firmware.
func NormalizeDateSeparators(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "/")
	s = strings.ReplaceAll(s, ".", "/")
	return s
}
