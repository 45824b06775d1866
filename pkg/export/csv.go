package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/domain/sport"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func sortedCategories(m map[sport.Category]period.Totals) []sport.Category {
	cats := make([]sport.Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// WriteLoadSeriesCSV writes date,tss,ctl,atl,tsb rows.
func WriteLoadSeriesCSV(w io.Writer, series *load.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "tss", "ctl", "atl", "tsb"}); err != nil {
		return err
	}
	for _, r := range loadRows(series) {
		if err := cw.Write([]string{r.Date, formatFloat(r.TSS), formatFloat(r.CTL), formatFloat(r.ATL), formatFloat(r.TSB)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePeriodStatsCSV writes one row per period and sport category.
func WritePeriodStatsCSV(w io.Writer, stats []period.Stat) error {
	cw := csv.NewWriter(w)
	header := []string{"period_type", "label", "period_start", "period_end", "sport_category",
		"activity_count", "total_duration_s", "total_distance_m", "total_calories"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range periodRows(stats) {
		rec := []string{
			r.PeriodType, r.Label, r.PeriodStart, r.PeriodEnd, r.SportCategory,
			strconv.FormatInt(r.ActivityCount, 10),
			formatFloat(r.TotalDurationSeconds),
			formatFloat(r.TotalDistanceMeters),
			formatFloat(r.TotalCalories),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
