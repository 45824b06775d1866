package types

import (
	"fmt"
	"time"
)

// EffortDuration is a canonical best-effort duration.
type EffortDuration time.Duration

const (
	Effort5s  = EffortDuration(5 * time.Second)
	Effort1m  = EffortDuration(time.Minute)
	Effort5m  = EffortDuration(5 * time.Minute)
	Effort20m = EffortDuration(20 * time.Minute)
)

// EffortDurations lists the canonical durations, shortest first.
var EffortDurations = []EffortDuration{Effort5s, Effort1m, Effort5m, Effort20m}

func (d EffortDuration) Seconds() int {
	return int(time.Duration(d) / time.Second)
}

// String renders the short label used in tables and documents: 5s, 1m, 5m, 20m.
func (d EffortDuration) String() string {
	td := time.Duration(d)
	if td%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(td/time.Minute))
	}
	return fmt.Sprintf("%ds", int(td/time.Second))
}

func (d EffortDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *EffortDuration) UnmarshalText(b []byte) error {
	parsed, err := ParseEffortDuration(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseEffortDuration accepts any time.ParseDuration string that resolves to
// a canonical duration ("5s", "1m", "60s", "20m0s", ...).
func ParseEffortDuration(s string) (EffortDuration, error) {
	td, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse effort duration %q: %w", s, err)
	}
	for _, d := range EffortDurations {
		if time.Duration(d) == td {
			return d, nil
		}
	}
	return 0, fmt.Errorf("effort duration %q is not canonical", s)
}

// ActivityRecord is one completed exercise session as materialised by the
// activity store. Optional numerics are nil when the source did not report them.
type ActivityRecord struct {
	ID           string    `json:"id"`
	SportTypeRaw string    `json:"sportTypeRaw"`
	StartTime    time.Time `json:"startTimestamp"`

	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	DistanceMeters  *float64 `json:"distanceMeters,omitempty"`
	Calories        *float64 `json:"calories,omitempty"`

	TrainingStressScore *float64 `json:"trainingStressScore,omitempty"`

	// BestEffortPower maps a canonical duration to the highest average power
	// (watts) sustained for that duration during the activity.
	BestEffortPower map[EffortDuration]float64 `json:"bestEffortPower,omitempty"`

	AveragePower     *float64 `json:"averagePower,omitempty"`
	MaxPower         *float64 `json:"maxPower,omitempty"`
	AverageHeartRate *float64 `json:"averageHeartRate,omitempty"`
	MaxHeartRate     *float64 `json:"maxHeartRate,omitempty"`
}

// Date returns the local calendar date the activity started on.
func (a *ActivityRecord) Date() Date {
	return DateOf(a.StartTime)
}

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// AthleteProfile is supplied per computation. Every field is optional.
type AthleteProfile struct {
	WeightKg *float64 `json:"weightKg,omitempty"`
	Age      *int     `json:"age,omitempty"`
	Sex      Sex      `json:"sex,omitempty"`
}

// EffectiveSex defaults to male because the reference tables are sex-specific.
func (p *AthleteProfile) EffectiveSex() Sex {
	if p == nil || p.Sex != SexFemale {
		return SexMale
	}
	return SexFemale
}

// Float returns a pointer to v. Handy for building records in code and tests.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
