// Package load builds the performance management chart: daily training
// stress folded into chronic (fitness) and acute (fatigue) exponentially
// weighted averages.
package load

import (
	"github.com/vitalsync/server/pkg/types"
)

const (
	DefaultWindowDays = 90

	// MaxWindowDays caps the emitted window at roughly ten years.
	MaxWindowDays = 3650
	// MaxSeedDays caps how far before the window start a seeded
	// recurrence may begin. Older activities are folded in from there.
	MaxSeedDays = 3650

	// ChronicTimeConstant and AcuteTimeConstant are the EWMA time constants in days.
	ChronicTimeConstant = 42.0
	AcuteTimeConstant   = 7.0

	// MinTSSDays is the number of TSS-bearing days a chart needs before it
	// means anything. Below it callers should hide the chart.
	MinTSSDays = 3
)

// Snapshot is the chart state at the end of one calendar day.
type Snapshot struct {
	Date types.Date `json:"date"`
	TSS  float64    `json:"tss"`
	CTL  float64    `json:"ctl"`
	ATL  float64    `json:"atl"`
	TSB  float64    `json:"tsb"`
}

type Options struct {
	// WindowDays bounds the output; zero means DefaultWindowDays and
	// anything above MaxWindowDays is clamped.
	WindowDays int
	// SampleEvery emits every Nth day counting back from the as-of date.
	// The recurrence is still stepped daily. Zero or one means every day.
	SampleEvery int
	// SeedFromHistory boots the recurrence at the earliest activity instead
	// of the window start. Only the window is emitted either way.
	SeedFromHistory bool
}

type Series struct {
	AsOf       types.Date `json:"asOf"`
	WindowDays int        `json:"windowDays"`
	Snapshots  []Snapshot `json:"snapshots"`
	// TSSDays counts days inside the window with a positive daily load.
	TSSDays int `json:"tssDays"`
}

// Sufficient reports whether the series has enough history to display.
func (s *Series) Sufficient() bool {
	return s.TSSDays >= MinTSSDays
}

// Latest returns the as-of snapshot.
func (s *Series) Latest() Snapshot {
	if len(s.Snapshots) == 0 {
		return Snapshot{Date: s.AsOf}
	}
	return s.Snapshots[len(s.Snapshots)-1]
}

// DailyLoad sums training stress per local calendar date over every
// activity. Activities without a score contribute nothing.
func DailyLoad(activities []types.ActivityRecord) map[types.Date]float64 {
	daily := make(map[types.Date]float64)
	for i := range activities {
		a := &activities[i]
		if a.TrainingStressScore == nil {
			continue
		}
		daily[a.Date()] += *a.TrainingStressScore
	}
	return daily
}

// Step advances one day of the recurrence.
func Step(ctl, atl, tss float64) (float64, float64) {
	ctl += (tss - ctl) / ChronicTimeConstant
	atl += (tss - atl) / AcuteTimeConstant
	return ctl, atl
}

// Build steps the recurrence one calendar day at a time from the window
// start (or the earliest activity when seeding) up to and including asOf.
func Build(activities []types.ActivityRecord, asOf types.Date, opts Options) *Series {
	window := opts.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}
	window = min(window, MaxWindowDays)
	sample := opts.SampleEvery
	if sample <= 0 {
		sample = 1
	}

	daily := DailyLoad(activities)
	windowStart := asOf.AddDays(-(window - 1))

	start := windowStart
	if opts.SeedFromHistory {
		for d := range daily {
			if d.Before(start) {
				start = d
			}
		}
		if floor := windowStart.AddDays(-MaxSeedDays); start.Before(floor) {
			start = floor
		}
	}

	series := &Series{
		AsOf:       asOf,
		WindowDays: window,
		Snapshots:  make([]Snapshot, 0, window/sample+1),
	}

	var ctl, atl float64
	for d := start; !d.After(asOf); d = d.AddDays(1) {
		tss := daily[d]
		ctl, atl = Step(ctl, atl, tss)

		if d.Before(windowStart) {
			continue
		}
		if tss > 0 {
			series.TSSDays++
		}
		if d.DaysUntil(asOf)%sample != 0 {
			continue
		}
		series.Snapshots = append(series.Snapshots, Snapshot{
			Date: d,
			TSS:  tss,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return series
}
