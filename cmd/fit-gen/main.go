package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/muktihari/fit/profile/typedef"

	"github.com/vitalsync/server/pkg/domain/file_generators"
	"github.com/vitalsync/server/pkg/domain/fit_parser"
)

// workoutSpec is the JSON input. Blocks are played back to back at 1 Hz.
type workoutSpec struct {
	SportType      string    `json:"sportType"`
	Start          time.Time `json:"start"`
	DistanceMeters float64   `json:"distanceMeters"`
	Calories       uint16    `json:"calories"`
	TSS            float64   `json:"tss"`
	ThresholdPower uint16    `json:"thresholdPower"`
	Blocks         []struct {
		Seconds   int    `json:"seconds"`
		Watts     uint16 `json:"watts"`
		HeartRate uint8  `json:"heartRate"`
	} `json:"blocks"`
}

var candidates = []struct {
	sport    typedef.Sport
	subSport typedef.SubSport
}{
	{typedef.SportRunning, typedef.SubSportGeneric},
	{typedef.SportRunning, typedef.SubSportTrail},
	{typedef.SportRunning, typedef.SubSportTreadmill},
	{typedef.SportRunning, typedef.SubSportTrack},
	{typedef.SportRunning, typedef.SubSportVirtualActivity},
	{typedef.SportCycling, typedef.SubSportGeneric},
	{typedef.SportCycling, typedef.SubSportRoad},
	{typedef.SportCycling, typedef.SubSportVirtualActivity},
	{typedef.SportCycling, typedef.SubSportIndoorCycling},
	{typedef.SportCycling, typedef.SubSportMountain},
	{typedef.SportCycling, typedef.SubSportGravelCycling},
	{typedef.SportSwimming, typedef.SubSportLapSwimming},
	{typedef.SportSwimming, typedef.SubSportOpenWater},
}

// resolveSport finds the FIT sport pair that parses back to label.
func resolveSport(label string) (typedef.Sport, typedef.SubSport, error) {
	for _, c := range candidates {
		if fit_parser.SportLabel(c.sport, c.subSport) == label {
			return c.sport, c.subSport, nil
		}
	}
	return 0, 0, fmt.Errorf("no FIT sport for %q", label)
}

func buildWorkout(spec *workoutSpec) (*file_generators.Workout, error) {
	sport, subSport, err := resolveSport(spec.SportType)
	if err != nil {
		return nil, err
	}

	w := &file_generators.Workout{
		Sport:          sport,
		SubSport:       subSport,
		StartTime:      spec.Start,
		DistanceMeters: spec.DistanceMeters,
		Calories:       spec.Calories,
		TSS:            spec.TSS,
		ThresholdPower: spec.ThresholdPower,
	}
	withHR := false
	for _, b := range spec.Blocks {
		withHR = withHR || b.HeartRate > 0
	}
	for _, b := range spec.Blocks {
		w.Power = append(w.Power, file_generators.ConstantPower(b.Seconds, b.Watts)...)
		if !withHR {
			continue
		}
		for i := 0; i < b.Seconds; i++ {
			w.HeartRate = append(w.HeartRate, b.HeartRate)
		}
	}
	return w, nil
}

func main() {
	inputFile := flag.String("input", "", "Path to input JSON workout")
	outputFile := flag.String("output", "output.fit", "Path to output FIT file")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	var spec workoutSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		log.Fatalf("Failed to parse JSON: %v", err)
	}
	if spec.Start.IsZero() {
		spec.Start = time.Now().UTC().Truncate(time.Second)
	}

	workout, err := buildWorkout(&spec)
	if err != nil {
		log.Fatalf("Invalid workout: %v", err)
	}

	fitData, err := file_generators.GenerateFitFile(workout)
	if err != nil {
		log.Fatalf("Failed to generate FIT file: %v", err)
	}

	if err := os.WriteFile(*outputFile, fitData, 0644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}

	fmt.Printf("Generated %s (%d bytes, %d s)\n", *outputFile, len(fitData), len(workout.Power))
}
