package main

import (
	"encoding/json"
	"testing"

	"github.com/muktihari/fit/profile/typedef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsync/server/pkg/domain/file_generators"
	"github.com/vitalsync/server/pkg/domain/fit_parser"
	"github.com/vitalsync/server/pkg/types"
)

func TestResolveSport(t *testing.T) {
	tests := []struct {
		label    string
		sport    typedef.Sport
		subSport typedef.SubSport
	}{
		{"running", typedef.SportRunning, typedef.SubSportGeneric},
		{"road_biking", typedef.SportCycling, typedef.SubSportRoad},
		{"virtual_ride", typedef.SportCycling, typedef.SubSportVirtualActivity},
		{"lap_swimming", typedef.SportSwimming, typedef.SubSportLapSwimming},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			s, sub, err := resolveSport(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.sport, s)
			assert.Equal(t, tt.subSport, sub)
		})
	}

	_, _, err := resolveSport("kitesurfing")
	assert.Error(t, err)
}

func TestBuildWorkout_RoundTrip(t *testing.T) {
	var spec workoutSpec
	require.NoError(t, json.Unmarshal([]byte(`{
		"sportType": "road_biking",
		"start": "2025-03-03T08:00:00Z",
		"blocks": [
			{"seconds": 300, "watts": 150, "heartRate": 120},
			{"seconds": 1200, "watts": 280, "heartRate": 160}
		]
	}`), &spec))

	w, err := buildWorkout(&spec)
	require.NoError(t, err)
	assert.Len(t, w.Power, 1500)
	assert.Len(t, w.HeartRate, 1500)

	data, err := file_generators.GenerateFitFile(w)
	require.NoError(t, err)
	activity, err := fit_parser.ParseFitFile(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "road_biking", activity.SportTypeRaw)
	assert.InDelta(t, 280, activity.BestEffortPower[types.Effort20m], 1e-9)
}
