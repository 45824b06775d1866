package period

import (
	"math"
)

const (
	// WeekYearOffsetDays is 52 whole weeks, which keeps the weekday aligned.
	WeekYearOffsetDays = 364
	// WeekMatchToleranceDays bounds how far a week may drift from the ideal match.
	WeekMatchToleranceDays = 14
)

// MatchYearOverYear finds the period one year before current among periods
// of the same type. The boolean is false when there is no acceptable match.
func MatchYearOverYear(current Stat, periods []Stat) (Stat, bool) {
	switch current.Type {
	case Year:
		for _, p := range periods {
			if p.Type == Year && p.Start.Year == current.Start.Year-1 {
				return p, true
			}
		}
	case Month:
		for _, p := range periods {
			if p.Type == Month && p.Start.Year == current.Start.Year-1 && p.Start.Month == current.Start.Month {
				return p, true
			}
		}
	case Week:
		target := current.Start.AddDays(-WeekYearOffsetDays)
		best, bestDiff := -1, math.MaxInt
		for i, p := range periods {
			if p.Type != Week {
				continue
			}
			diff := p.Start.DaysUntil(target)
			if diff < 0 {
				diff = -diff
			}
			if diff < bestDiff {
				best, bestDiff = i, diff
			}
		}
		if best >= 0 && bestDiff <= WeekMatchToleranceDays {
			return periods[best], true
		}
	}
	return Stat{}, false
}

// Comparison holds percent changes against the matched period. A nil change
// means unavailable: no match, or nothing to compare against.
type Comparison struct {
	Current  Stat  `json:"current"`
	Previous *Stat `json:"previous,omitempty"`

	ActivityCountChangePct *float64 `json:"activityCountChangePct,omitempty"`
	DurationChangePct      *float64 `json:"durationChangePct,omitempty"`
	DistanceChangePct      *float64 `json:"distanceChangePct,omitempty"`
	CaloriesChangePct      *float64 `json:"caloriesChangePct,omitempty"`
}

// Available reports whether a prior period was matched.
func (c *Comparison) Available() bool {
	return c.Previous != nil
}

// Compare matches current against periods and derives percent changes.
func Compare(current Stat, periods []Stat) Comparison {
	cmp := Comparison{Current: current}
	prev, ok := MatchYearOverYear(current, periods)
	if !ok {
		return cmp
	}
	cmp.Previous = &prev
	cmp.ActivityCountChangePct = PercentChange(float64(current.ActivityCount), float64(prev.ActivityCount))
	cmp.DurationChangePct = PercentChange(current.TotalDurationSeconds, prev.TotalDurationSeconds)
	cmp.DistanceChangePct = PercentChange(current.TotalDistanceMeters, prev.TotalDistanceMeters)
	cmp.CaloriesChangePct = PercentChange(current.TotalCalories, prev.TotalCalories)
	return cmp
}

// PercentChange returns nil when previous is zero rather than masking a
// division by zero.
func PercentChange(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	pct := (current - previous) / previous * 100
	return &pct
}
