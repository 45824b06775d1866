// Package analytics ties the domain builders together into one report per
// immutable input snapshot.
package analytics

import (
	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/domain/reference"
	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/types"
)

// DefaultPeriodCounts keep a year and a bit of history so every current
// period can find its prior-year match.
var DefaultPeriodCounts = map[period.Type]int{
	period.Week:  54,
	period.Month: 13,
	period.Year:  2,
}

// Snapshot is the engine input. Callers must not mutate it while a compute
// pass is running.
type Snapshot struct {
	Activities []types.ActivityRecord
	Athlete    *types.AthleteProfile
}

type Request struct {
	AsOf         types.Date
	WindowDays   int
	SampleEvery  int
	SeedHistory  bool
	PeriodCounts map[period.Type]int
	// Sport filters the period views. PowerSport filters the power profile.
	Sport      sport.Category
	PowerSport sport.Category
}

// Readiness exposes the needs-more-data conditions so callers can hide
// views instead of showing zero-filled charts.
type Readiness struct {
	PMC          bool                 `json:"pmc"`
	YearOverYear map[period.Type]bool `json:"yearOverYear"`
	PowerProfile bool                 `json:"powerProfile"`
}

type Report struct {
	AsOf         types.Date                        `json:"asOf"`
	Load         *load.Series                      `json:"load"`
	Periods      map[period.Type][]period.Stat     `json:"periods"`
	YearOverYear map[period.Type]period.Comparison `json:"yearOverYear"`
	Power        *power.Profile                    `json:"power"`
	Readiness    Readiness                         `json:"readiness"`
}

type Engine struct {
	Tables *reference.Tables
}

// NewEngine falls back to the embedded reference tables when tables is nil.
func NewEngine(tables *reference.Tables) *Engine {
	if tables == nil {
		tables = reference.Default()
	}
	return &Engine{Tables: tables}
}

// LoadSeries builds the PMC for the snapshot.
func (e *Engine) LoadSeries(snap Snapshot, req Request) *load.Series {
	return load.Build(snap.Activities, req.AsOf, load.Options{
		WindowDays:      req.WindowDays,
		SampleEvery:     req.SampleEvery,
		SeedFromHistory: req.SeedHistory,
	})
}

// Periods aggregates one period type.
func (e *Engine) Periods(snap Snapshot, req Request, pt period.Type) []period.Stat {
	return period.Aggregate(snap.Activities, period.Query{
		Type:  pt,
		Count: req.periodCount(pt),
		Sport: req.Sport,
		AsOf:  req.AsOf,
	})
}

// PowerProfile builds the power-duration profile.
func (e *Engine) PowerProfile(snap Snapshot, req Request) *power.Profile {
	return power.BuildProfile(snap.Activities, snap.Athlete, e.Tables, power.Options{Sport: req.PowerSport})
}

// Compute runs every builder over the snapshot. It is pure: the same
// snapshot and request always produce the same report.
func (e *Engine) Compute(snap Snapshot, req Request) *Report {
	report := &Report{
		AsOf:         req.AsOf,
		Load:         e.LoadSeries(snap, req),
		Periods:      make(map[period.Type][]period.Stat, 3),
		YearOverYear: make(map[period.Type]period.Comparison, 3),
		Power:        e.PowerProfile(snap, req),
		Readiness: Readiness{
			YearOverYear: make(map[period.Type]bool, 3),
		},
	}

	for _, pt := range []period.Type{period.Week, period.Month, period.Year} {
		stats := e.Periods(snap, req, pt)
		report.Periods[pt] = stats
		if len(stats) == 0 {
			continue
		}
		cmp := period.Compare(stats[len(stats)-1], stats)
		report.YearOverYear[pt] = cmp
		report.Readiness.YearOverYear[pt] = cmp.Available()
	}

	report.Readiness.PMC = report.Load.Sufficient()
	report.Readiness.PowerProfile = report.Power.FTPWatts != nil
	return report
}

func (r Request) periodCount(pt period.Type) int {
	if n, ok := r.PeriodCounts[pt]; ok {
		return n
	}
	return DefaultPeriodCounts[pt]
}
