package decode

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2023/7/15 8:30:00", time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{"2023/07/15 08:30:00", time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{"2023-7-15 8:30:00", time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{"2023-07-15T08:30:00", time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{"2023/7/15 8:30", time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{`"2023/7/15 8:30:00"`, time.Date(2023, 7, 15, 8, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCombineDateClock(t *testing.T) {
	tests := []struct {
		date  string
		clock string
		want  time.Time
		ok    bool
	}{
		{"2023/07/15", "08:00:00", time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC), true},
		{"2023-07-15", "08:00:00", time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC), true},
		{"2023.07.15", "8:00", time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC), true},
		{"2023/7/15", "23:59:59", time.Date(2023, 7, 15, 23, 59, 59, 0, time.UTC), true},
		{"bad", "08:00:00", time.Time{}, false},
		{"2023/07/15", "bad", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := CombineDateClock(tt.date, tt.clock)
		if ok != tt.ok {
			t.Errorf("CombineDateClock(%q, %q) ok = %v, want %v", tt.date, tt.clock, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("CombineDateClock(%q, %q) = %v, want %v", tt.date, tt.clock, got, tt.want)
		}
	}
}

func TestNormalizeDateSeparators(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2023-07-15", "2023/07/15"},
		{"2023.07.15", "2023/07/15"},
		{"2023/07/15", "2023/07/15"},
		{"  2023-7-1 ", "2023/7/1"},
	}
	for _, tt := range tests {
		if got := NormalizeDateSeparators(tt.in); got != tt.want {
			t.Errorf("NormalizeDateSeparators(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
