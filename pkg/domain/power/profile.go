// Package power derives an athlete's power-duration profile: personal best
// efforts, an FTP estimate, W/kg and a classification against reference
// populations.
package power

import (
	"math"

	"github.com/vitalsync/server/pkg/domain/reference"
	"github.com/vitalsync/server/pkg/domain/sport"
	"github.com/vitalsync/server/pkg/types"
)

const (
	// FTPFactor converts best 20 minute power into an FTP estimate.
	FTPFactor = 0.95

	AgeAdjustmentThreshold = 35
	// AgeAdjustmentPerYear reverses the assumed yearly decline past the threshold.
	AgeAdjustmentPerYear = 0.006
)

// Profile fields are nil when they cannot be computed from the inputs.
type Profile struct {
	BestEfforts map[types.EffortDuration]float64 `json:"bestEfforts"`

	FTPWatts            *int            `json:"ftpWatts,omitempty"`
	WattsPerKg          *float64        `json:"wattsPerKg,omitempty"`
	Category            *reference.Band `json:"category,omitempty"`
	AgeAdjustedFTPWatts *float64        `json:"ageAdjustedFtpWatts,omitempty"`

	// PerDurationPercentile is keyed by canonical duration; a duration is
	// absent when there is no effort or no body weight.
	PerDurationPercentile map[types.EffortDuration]float64 `json:"perDurationPercentile"`

	Sex           types.Sex `json:"sex"`
	TablesVersion string    `json:"tablesVersion"`
}

type Options struct {
	// Sport restricts which activities count. Empty means every activity.
	Sport sport.Category
}

// Best returns the maximum best-effort power per canonical duration across
// activities.
func Best(activities []types.ActivityRecord, filter sport.Category) map[types.EffortDuration]float64 {
	best := make(map[types.EffortDuration]float64)
	for i := range activities {
		a := &activities[i]
		if filter != "" && sport.Classify(a.SportTypeRaw) != filter {
			continue
		}
		for _, d := range types.EffortDurations {
			w, ok := a.BestEffortPower[d]
			if !ok || w <= 0 {
				continue
			}
			if w > best[d] {
				best[d] = w
			}
		}
	}
	return best
}

// EstimateFTP rounds 95% of the best 20 minute power.
func EstimateFTP(best20 float64) int {
	return int(math.Round(FTPFactor * best20))
}

// AgeAdjust scales ftp up for athletes older than the threshold age.
func AgeAdjust(ftp float64, age *int) float64 {
	if age == nil || *age <= AgeAdjustmentThreshold {
		return ftp
	}
	return ftp * (1 + AgeAdjustmentPerYear*float64(*age-AgeAdjustmentThreshold))
}

// BuildProfile assembles the profile. Missing weight, age or a 20 minute
// effort narrow the output instead of failing.
func BuildProfile(activities []types.ActivityRecord, athlete *types.AthleteProfile, tables *reference.Tables, opts Options) *Profile {
	if athlete == nil {
		athlete = &types.AthleteProfile{}
	}
	pop := tables.Population(athlete.EffectiveSex())

	profile := &Profile{
		BestEfforts:           Best(activities, opts.Sport),
		PerDurationPercentile: make(map[types.EffortDuration]float64),
		Sex:                   athlete.EffectiveSex(),
		TablesVersion:         tables.Version,
	}

	if best20, ok := profile.BestEfforts[types.Effort20m]; ok {
		ftp := EstimateFTP(best20)
		profile.FTPWatts = &ftp
		adjusted := AgeAdjust(float64(ftp), athlete.Age)
		profile.AgeAdjustedFTPWatts = &adjusted
	}

	weight := athlete.WeightKg
	if weight == nil || *weight <= 0 {
		return profile
	}

	if profile.FTPWatts != nil {
		wkg := float64(*profile.FTPWatts) / *weight
		profile.WattsPerKg = &wkg
		if band, ok := pop.Classify(wkg); ok {
			profile.Category = &band
		}
	}

	for _, d := range types.EffortDurations {
		var wkg float64
		if d == types.Effort20m {
			// The reference threshold column is FTP based.
			if profile.WattsPerKg == nil {
				continue
			}
			wkg = *profile.WattsPerKg
		} else {
			w, ok := profile.BestEfforts[d]
			if !ok {
				continue
			}
			wkg = w / *weight
		}
		if pct, ok := pop.Percentile(d, wkg); ok {
			profile.PerDurationPercentile[d] = pct
		}
	}

	return profile
}
