package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/types"
)

func act(id, raw string, ts time.Time, dur, dist, cal *float64) types.ActivityRecord {
	return types.ActivityRecord{
		ID:              id,
		SportTypeRaw:    raw,
		StartTime:       ts,
		DurationSeconds: dur,
		DistanceMeters:  dist,
		Calories:        cal,
	}
}

func fixtureActivities() []types.ActivityRecord {
	f := types.Float
	return []types.ActivityRecord{
		act("r1", "running", time.Date(2025, 2, 3, 6, 30, 0, 0, time.UTC), f(1800), f(5000), f(350)),
		act("c1", "road_biking", time.Date(2025, 2, 4, 17, 0, 0, 0, time.UTC), f(5400), f(45000), f(1100)),
		act("c2", "indoor_cycling", time.Date(2025, 2, 9, 23, 59, 0, 0, time.UTC), f(3600), nil, f(700)),
		act("s1", "lap_swimming", time.Date(2025, 2, 10, 7, 0, 0, 0, time.UTC), f(2700), f(2500), nil),
		act("w1", "strength_training", time.Date(2025, 1, 28, 19, 0, 0, 0, time.UTC), f(3000), nil, f(300)),
		act("o1", "kayaking", time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), f(4000), f(8000), nil),
		act("x1", "running", time.Date(2024, 2, 6, 6, 0, 0, 0, time.UTC), f(2000), f(5500), f(380)),
		act("n1", "running", time.Date(2025, 2, 12, 6, 0, 0, 0, time.UTC), nil, nil, nil),
	}
}

func TestBounds(t *testing.T) {
	d := types.NewDate(2025, time.February, 5) // Wednesday

	start, end := Bounds(Week, d)
	assert.Equal(t, types.NewDate(2025, time.February, 3), start)
	assert.Equal(t, types.NewDate(2025, time.February, 10), end)

	start, end = Bounds(Month, d)
	assert.Equal(t, types.NewDate(2025, time.February, 1), start)
	assert.Equal(t, types.NewDate(2025, time.March, 1), end)

	start, end = Bounds(Year, d)
	assert.Equal(t, types.NewDate(2025, time.January, 1), start)
	assert.Equal(t, types.NewDate(2026, time.January, 1), end)

	// Sunday belongs to the week that started the previous Monday.
	start, _ = Bounds(Week, types.NewDate(2025, time.February, 9))
	assert.Equal(t, types.NewDate(2025, time.February, 3), start)
}

func TestPeriods_ContiguousAndFixedLength(t *testing.T) {
	asOf := types.NewDate(2025, time.March, 12)
	for _, pt := range []Type{Week, Month, Year} {
		t.Run(string(pt), func(t *testing.T) {
			stats := Periods(Query{Type: pt, Count: 14, AsOf: asOf})
			require.Len(t, stats, 14)
			assert.True(t, stats[len(stats)-1].Contains(asOf))
			for i := 1; i < len(stats); i++ {
				assert.Equal(t, stats[i-1].End, stats[i].Start, "buckets must be contiguous")
			}
			for _, s := range stats {
				switch pt {
				case Week:
					assert.Equal(t, time.Monday, s.Start.Weekday())
					assert.Equal(t, 7, s.Start.DaysUntil(s.End))
				case Month:
					assert.Equal(t, 1, s.Start.Day)
					assert.Equal(t, s.Start.Month%12+1, s.End.Month)
				case Year:
					assert.Equal(t, time.January, s.Start.Month)
					assert.Equal(t, s.Start.Year+1, s.End.Year)
				}
			}
		})
	}

	assert.Empty(t, Periods(Query{Type: Week, Count: 0, AsOf: asOf}))
}

func TestAggregate_WeekTotals(t *testing.T) {
	asOf := types.NewDate(2025, time.February, 12)
	stats := Aggregate(fixtureActivities(), Query{Type: Week, Count: 3, AsOf: asOf})
	require.Len(t, stats, 3)

	assert.Equal(t, "2025-W05", stats[0].Label())
	assert.Equal(t, 1, stats[0].ActivityCount)
	assert.Equal(t, 3000.0, stats[0].TotalDurationSeconds)

	week6 := stats[1]
	assert.Equal(t, "2025-W06", week6.Label())
	assert.Equal(t, 3, week6.ActivityCount)
	assert.Equal(t, 10800.0, week6.TotalDurationSeconds)
	assert.Equal(t, 50000.0, week6.TotalDistanceMeters)
	assert.Equal(t, 2150.0, week6.TotalCalories)
	assert.Equal(t, 2, week6.BySport[sport.Cycling].ActivityCount)
	assert.Equal(t, 9000.0, week6.BySport[sport.Cycling].TotalDurationSeconds)

	// Record without optional numerics still counts as an activity.
	week7 := stats[2]
	assert.Equal(t, 2, week7.ActivityCount)
	assert.Equal(t, 2700.0, week7.TotalDurationSeconds)
	assert.Equal(t, 1, week7.BySport[sport.Running].ActivityCount)
	assert.Zero(t, week7.BySport[sport.Running].TotalDurationSeconds)
}

func TestAggregate_EmptyPeriodIsZeroValued(t *testing.T) {
	stats := Aggregate(nil, Query{Type: Month, Count: 2, AsOf: types.NewDate(2025, time.June, 1)})
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Zero(t, s.ActivityCount)
		assert.Zero(t, s.TotalDurationSeconds)
		assert.NotNil(t, s.BySport)
	}
}

func TestAggregate_SportBreakdownSumsToTotal(t *testing.T) {
	asOf := types.NewDate(2025, time.February, 12)
	activities := fixtureActivities()

	for _, pt := range []Type{Week, Month, Year} {
		all := Aggregate(activities, Query{Type: pt, Count: 3, AsOf: asOf})
		for _, s := range all {
			var dur float64
			var count int
			for _, c := range sport.All() {
				dur += s.BySport[c].TotalDurationSeconds
				count += s.BySport[c].ActivityCount
			}
			assert.Equal(t, s.TotalDurationSeconds, dur, "%s %s", pt, s.Label())
			assert.Equal(t, s.ActivityCount, count, "%s %s", pt, s.Label())
		}

		for _, c := range sport.All() {
			filtered := Aggregate(activities, Query{Type: pt, Count: 3, AsOf: asOf, Sport: c})
			require.Len(t, filtered, len(all))
			for i := range filtered {
				assert.Equal(t, all[i].BySport[c], filtered[i].Totals, "%s %s %s", pt, c, all[i].Label())
				for other := range filtered[i].BySport {
					assert.Equal(t, c, other, "filtered breakdown only holds the filtered sport")
				}
			}
		}
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"week", "month", "year"} {
		got, err := ParseType(s)
		require.NoError(t, err)
		assert.Equal(t, Type(s), got)
	}
	_, err := ParseType("quarter")
	assert.Error(t, err)
}
