package core

import "time"

// phases.go derives timing metrics from stored boundary timestamps.
// Derived values are computed at read time from whatever boundaries are
// present; they are never persisted, so a later correction to a single
// boundary cannot leave a stale duration behind.

// PhaseSummary holds derived timing for one participant. Nil means the
// required boundaries for that value are absent.
type PhaseSummary struct {
	SwimDuration *time.Duration `json:"swim_duration,omitempty"`
	BikeDuration *time.Duration `json:"bike_duration,omitempty"`
	RunDuration  *time.Duration `json:"run_duration,omitempty"`

	OverallStart  *time.Time     `json:"overall_start,omitempty"`
	OverallFinish *time.Time     `json:"overall_finish,omitempty"`
	TotalDuration *time.Duration `json:"total_duration,omitempty"`
}

// Phases derives the timing summary for a record. A segment duration
// needs both its boundaries and a finish at or after the start;
// anything else yields nil for that segment.
func (r *RaceRecord) Phases() PhaseSummary {
	var p PhaseSummary
	p.SwimDuration = segmentDuration(r.SwimStart, r.SwimFinish)
	p.BikeDuration = segmentDuration(r.BikeStart, r.BikeFinish)
	p.RunDuration = segmentDuration(r.RunStart, r.RunFinish)

	p.OverallStart = earliest(r.SwimStart, r.BikeStart, r.RunStart)
	p.OverallFinish = latest(r.SwimFinish, r.BikeFinish, r.RunFinish)
	p.TotalDuration = segmentDuration(p.OverallStart, p.OverallFinish)
	return p
}

func segmentDuration(start, finish *time.Time) *time.Duration {
	if start == nil || finish == nil || finish.Before(*start) {
		return nil
	}
	d := finish.Sub(*start)
	return &d
}

func earliest(ts ...*time.Time) *time.Time {
	var min *time.Time
	for _, t := range ts {
		if t == nil {
			continue
		}
		if min == nil || t.Before(*min) {
			min = t
		}
	}
	return min
}

func latest(ts ...*time.Time) *time.Time {
	var max *time.Time
	for _, t := range ts {
		if t == nil {
			continue
		}
		if max == nil || t.After(*max) {
			max = t
		}
	}
	return max
}
