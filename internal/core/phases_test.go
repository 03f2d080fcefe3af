package core

import (
	"testing"
	"time"
)

func tp(h, m int) *time.Time {
	t := time.Date(2023, 7, 15, h, m, 0, 0, time.UTC)
	return &t
}

func TestPhases_FullRecord(t *testing.T) {
	r := &RaceRecord{
		SwimStart:  tp(8, 0),
		SwimFinish: tp(8, 40),
		BikeStart:  tp(8, 45),
		BikeFinish: tp(10, 15),
		RunStart:   tp(10, 20),
		RunFinish:  tp(11, 10),
	}

	p := r.Phases()

	if p.SwimDuration == nil || *p.SwimDuration != 40*time.Minute {
		t.Errorf("SwimDuration = %v, want 40m", p.SwimDuration)
	}
	if p.BikeDuration == nil || *p.BikeDuration != 90*time.Minute {
		t.Errorf("BikeDuration = %v, want 1h30m", p.BikeDuration)
	}
	if p.RunDuration == nil || *p.RunDuration != 50*time.Minute {
		t.Errorf("RunDuration = %v, want 50m", p.RunDuration)
	}
	if p.OverallStart == nil || !p.OverallStart.Equal(*r.SwimStart) {
		t.Errorf("OverallStart = %v, want swim start", p.OverallStart)
	}
	if p.OverallFinish == nil || !p.OverallFinish.Equal(*r.RunFinish) {
		t.Errorf("OverallFinish = %v, want run finish", p.OverallFinish)
	}
	if p.TotalDuration == nil || *p.TotalDuration != 3*time.Hour+10*time.Minute {
		t.Errorf("TotalDuration = %v, want 3h10m", p.TotalDuration)
	}
}

func TestPhases_PartialRecord(t *testing.T) {
	// Participant dropped out after the swim; bike start was recorded
	// but no bike finish.
	r := &RaceRecord{
		SwimStart:  tp(8, 0),
		SwimFinish: tp(8, 40),
		BikeStart:  tp(8, 45),
	}

	p := r.Phases()

	if p.SwimDuration == nil {
		t.Error("SwimDuration should be derivable")
	}
	if p.BikeDuration != nil {
		t.Error("BikeDuration should be nil without a finish")
	}
	if p.RunDuration != nil {
		t.Error("RunDuration should be nil")
	}
	if p.OverallStart == nil || !p.OverallStart.Equal(*r.SwimStart) {
		t.Errorf("OverallStart = %v, want swim start", p.OverallStart)
	}
	// Latest present finish is the swim finish.
	if p.OverallFinish == nil || !p.OverallFinish.Equal(*r.SwimFinish) {
		t.Errorf("OverallFinish = %v, want swim finish", p.OverallFinish)
	}
	if p.TotalDuration == nil || *p.TotalDuration != 40*time.Minute {
		t.Errorf("TotalDuration = %v, want 40m", p.TotalDuration)
	}
}

func TestPhases_EmptyRecord(t *testing.T) {
	p := (&RaceRecord{}).Phases()

	if p.SwimDuration != nil || p.BikeDuration != nil || p.RunDuration != nil {
		t.Error("segment durations should be nil on an empty record")
	}
	if p.OverallStart != nil || p.OverallFinish != nil || p.TotalDuration != nil {
		t.Error("overall timing should be nil on an empty record")
	}
}

func TestPhases_FinishBeforeStart(t *testing.T) {
	// A corrected start later than the finish yields no duration rather
	// than a negative one.
	r := &RaceRecord{
		SwimStart:  tp(9, 0),
		SwimFinish: tp(8, 30),
	}

	p := r.Phases()
	if p.SwimDuration != nil {
		t.Errorf("SwimDuration = %v, want nil for inverted boundaries", p.SwimDuration)
	}
}
