// Package sport maps free-form vendor activity labels onto the fixed set of
// sport categories used for period breakdowns and power profiling.
package sport

import "fmt"

type Category string

const (
	Running  Category = "running"
	Cycling  Category = "cycling"
	Swimming Category = "swimming"
	Strength Category = "strength"
	Other    Category = "other"
)

// All returns every category in display order.
func All() []Category {
	return []Category{Running, Cycling, Swimming, Strength, Other}
}

// rawLabels is keyed by the vendor label exactly as received (Garmin Connect
// typeKey vocabulary plus the Strava/Intervals names seen in uploads).
var rawLabels = map[string]Category{
	// Running
	"running":           Running,
	"trail_running":     Running,
	"treadmill_running": Running,
	"track_running":     Running,
	"street_running":    Running,
	"indoor_running":    Running,
	"virtual_run":       Running,
	"ultra_run":         Running,
	"obstacle_run":      Running,
	"Run":               Running,
	"TrailRun":          Running,
	"VirtualRun":        Running,

	// Cycling
	"cycling":           Cycling,
	"road_biking":       Cycling,
	"indoor_cycling":    Cycling,
	"virtual_ride":      Cycling,
	"gravel_cycling":    Cycling,
	"mountain_biking":   Cycling,
	"cyclocross":        Cycling,
	"track_cycling":     Cycling,
	"recumbent_cycling": Cycling,
	"hand_cycling":      Cycling,
	"e_bike_fitness":    Cycling,
	"e_bike_mountain":   Cycling,
	"bmx":               Cycling,
	"Ride":              Cycling,
	"VirtualRide":       Cycling,
	"GravelRide":        Cycling,
	"MountainBikeRide":  Cycling,

	// Swimming
	"swimming":            Swimming,
	"lap_swimming":        Swimming,
	"open_water_swimming": Swimming,
	"Swim":                Swimming,

	// Strength
	"strength_training": Strength,
	"weight_training":   Strength,
	"WeightTraining":    Strength,
}

// Classify returns the category for a raw label. Matching is case-sensitive
// and any label not in the table is Other.
func Classify(raw string) Category {
	if c, ok := rawLabels[raw]; ok {
		return c
	}
	return Other
}

// ParseCategory validates a category name supplied by a caller.
func ParseCategory(s string) (Category, error) {
	for _, c := range All() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown sport category %q", s)
}
