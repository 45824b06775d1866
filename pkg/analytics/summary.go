package analytics

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vitalsync/server/pkg/domain/load"
	"github.com/vitalsync/server/pkg/domain/period"
	"github.com/vitalsync/server/pkg/types"
)

// Summary renders a plain-text overview of the report.
func Summary(r *Report) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📅 As of %s\n", r.AsOf))

	latest := r.Load.Latest()
	if r.Readiness.PMC {
		sb.WriteString(p.Sprintf("📈 Fitness %.1f • Fatigue %.1f • Form %+.1f\n", latest.CTL, latest.ATL, latest.TSB))
	} else {
		sb.WriteString(p.Sprintf("📈 Not enough training stress history yet (%d of %d days)\n", r.Load.TSSDays, load.MinTSSDays))
	}

	for _, pt := range []period.Type{period.Week, period.Month, period.Year} {
		stats := r.Periods[pt]
		if len(stats) == 0 {
			continue
		}
		cur := stats[len(stats)-1]
		sb.WriteString(p.Sprintf("• %s: %d activities, %s, %s",
			cur.Label(), cur.ActivityCount, formatDuration(cur.TotalDurationSeconds), formatKilometers(p, cur.TotalDistanceMeters)))

		cmp := r.YearOverYear[pt]
		if cmp.Available() && cmp.DurationChangePct != nil {
			sb.WriteString(p.Sprintf(" (%+.0f%% time vs %s)", *cmp.DurationChangePct, cmp.Previous.Label()))
		}
		sb.WriteString("\n")
	}

	pp := r.Power
	if pp.FTPWatts == nil {
		sb.WriteString("⚡ No 20 minute power effort yet")
		return sb.String()
	}
	sb.WriteString(p.Sprintf("⚡ Est. FTP: %dW", *pp.FTPWatts))
	if pp.WattsPerKg != nil {
		sb.WriteString(p.Sprintf(" • %.2f W/kg", *pp.WattsPerKg))
	}
	if pp.Category != nil {
		sb.WriteString(fmt.Sprintf(" • %s", pp.Category.Category))
	}
	if pp.AgeAdjustedFTPWatts != nil && *pp.AgeAdjustedFTPWatts != float64(*pp.FTPWatts) {
		sb.WriteString(p.Sprintf(" • age-adjusted %.0fW", *pp.AgeAdjustedFTPWatts))
	}
	for _, d := range types.EffortDurations {
		if pct, ok := pp.PerDurationPercentile[d]; ok {
			sb.WriteString(p.Sprintf("\n  %s: %.0fW (%.0f%%)", d, pp.BestEfforts[d], pct))
		}
	}

	return sb.String()
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// formatKilometers uses thousand separators for long totals (e.g. yearly).
func formatKilometers(p *message.Printer, meters float64) string {
	return p.Sprintf("%.1f km", meters/1000)
}
