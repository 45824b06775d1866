// Package period buckets activities into calendar-aligned weeks, months and
// years and compares a bucket against the same bucket one year earlier.
package period

import (
	"fmt"
	"sort"

	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/types"
)

type Type string

const (
	Week  Type = "week"
	Month Type = "month"
	Year  Type = "year"
)

// ParseType validates a period type supplied by a caller.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Week, Month, Year:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown period type %q", s)
}

// Totals are the four aggregates kept per period and per sport.
type Totals struct {
	ActivityCount        int     `json:"activityCount"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	TotalDistanceMeters  float64 `json:"totalDistanceMeters"`
	TotalCalories        float64 `json:"totalCalories"`
}

func (t *Totals) add(a *types.ActivityRecord) {
	t.ActivityCount++
	if a.DurationSeconds != nil {
		t.TotalDurationSeconds += *a.DurationSeconds
	}
	if a.DistanceMeters != nil {
		t.TotalDistanceMeters += *a.DistanceMeters
	}
	if a.Calories != nil {
		t.TotalCalories += *a.Calories
	}
}

// Stat covers the half-open date range [Start, End).
type Stat struct {
	Type  Type       `json:"periodType"`
	Start types.Date `json:"periodStart"`
	End   types.Date `json:"periodEnd"`
	Totals
	BySport map[sport.Category]Totals `json:"bySportCategory"`
}

// Contains reports whether d falls inside [Start, End).
func (s *Stat) Contains(d types.Date) bool {
	return !d.Before(s.Start) && d.Before(s.End)
}

// Label renders 2025-W06, 2025-02 or 2025.
func (s *Stat) Label() string {
	switch s.Type {
	case Week:
		y, w := s.Start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Month:
		return fmt.Sprintf("%04d-%02d", s.Start.Year, int(s.Start.Month))
	default:
		return fmt.Sprintf("%04d", s.Start.Year)
	}
}

type Query struct {
	Type Type
	// Count is the number of most recent periods, including the one holding AsOf.
	Count int
	// Sport restricts every aggregate to one category. Empty means all.
	Sport sport.Category
	AsOf  types.Date
}

// Bounds returns the period of type t that contains d.
func Bounds(t Type, d types.Date) (start, end types.Date) {
	switch t {
	case Week:
		start = d.ISOWeekStart()
		return start, start.AddDays(7)
	case Month:
		start = types.NewDate(d.Year, d.Month, 1)
		return start, types.NewDate(d.Year, d.Month+1, 1)
	default:
		start = types.NewDate(d.Year, 1, 1)
		return start, types.NewDate(d.Year+1, 1, 1)
	}
}

// previous returns the start of the period immediately before one starting at start.
func previous(t Type, start types.Date) types.Date {
	switch t {
	case Week:
		return start.AddDays(-7)
	case Month:
		return types.NewDate(start.Year, start.Month-1, 1)
	default:
		return types.NewDate(start.Year-1, 1, 1)
	}
}

// Periods returns Count contiguous empty buckets ending with the one that
// holds AsOf, oldest first.
func Periods(q Query) []Stat {
	if q.Count <= 0 {
		return nil
	}
	stats := make([]Stat, q.Count)
	start, end := Bounds(q.Type, q.AsOf)
	for i := q.Count - 1; i >= 0; i-- {
		stats[i] = Stat{
			Type:    q.Type,
			Start:   start,
			End:     end,
			BySport: make(map[sport.Category]Totals),
		}
		end = start
		start = previous(q.Type, start)
	}
	return stats
}

// Aggregate fills the buckets described by q from activities.
func Aggregate(activities []types.ActivityRecord, q Query) []Stat {
	stats := Periods(q)
	if len(stats) == 0 {
		return stats
	}
	first, last := stats[0].Start, stats[len(stats)-1].End

	for i := range activities {
		a := &activities[i]
		d := a.Date()
		if d.Before(first) || !d.Before(last) {
			continue
		}
		cat := sport.Classify(a.SportTypeRaw)
		if q.Sport != "" && cat != q.Sport {
			continue
		}

		// Buckets are sorted and contiguous, so a binary search finds the owner.
		idx := sort.Search(len(stats), func(j int) bool {
			return d.Before(stats[j].End)
		})
		s := &stats[idx]
		s.Totals.add(a)
		bucket := s.BySport[cat]
		bucket.add(a)
		s.BySport[cat] = bucket
	}

	return stats
}
