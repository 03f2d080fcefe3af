package core

import (
	"fmt"
	"testing"
)

func TestTruncateErrors(t *testing.T) {
	s := &Service{maxErrors: 3}

	short := []string{"a", "b"}
	if got := s.truncateErrors(short); len(got) != 2 {
		t.Errorf("truncateErrors(short) = %v, want unchanged", got)
	}

	exact := []string{"a", "b", "c"}
	if got := s.truncateErrors(exact); len(got) != 3 {
		t.Errorf("truncateErrors(exact) = %v, want unchanged", got)
	}

	long := make([]string, 10)
	for i := range long {
		long[i] = fmt.Sprintf("err %d", i)
	}
	got := s.truncateErrors(long)
	if len(got) != 4 {
		t.Fatalf("truncateErrors(long) length = %d, want 4", len(got))
	}
	if got[3] != "... and 7 more" {
		t.Errorf("marker = %q, want %q", got[3], "... and 7 more")
	}
	if got[0] != "err 0" || got[2] != "err 2" {
		t.Errorf("truncated list should keep the first entries: %v", got)
	}
}

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&NotFoundError{Kind: "batch", ID: "b-1"}, "batch not found: b-1"},
		{&ReferentialError{SubjectID: "S9"}, "unknown subject: S9"},
		{
			&ConflictError{CompetitionID: "c1", SensorType: SensorHeartRate, RawSensorID: "HRM-1"},
			"sensor HRM-1 (heart_rate) already assigned in competition c1",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
