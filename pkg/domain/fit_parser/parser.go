package fit_parser

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/vitalsync/server/pkg/domain/power"
	"github.com/vitalsync/server/pkg/types"
)

// FIT message order: FileId -> DeviceInfo -> Records -> Lap -> Session -> Activity
// Records come BEFORE the Session summary, so everything is collected first.

var (
	ErrEmptyData = errors.New("empty FIT data")
	ErrNoSession = errors.New("no sessions found in FIT file")
)

// maxStreamSeconds bounds the resampled power stream (48h).
const maxStreamSeconds = 48 * 3600

// maxUTCOffset is the widest real-world zone offset (UTC+14).
const maxUTCOffset = 14 * time.Hour

// FIT invalid sentinels for the base types used below.
const (
	invalidUint8  = 0xFF
	invalidUint16 = 0xFFFF
	invalidUint32 = 0xFFFFFFFF
)

type powerSample struct {
	ts    time.Time
	watts float64
}

type sessionInfo struct {
	startTime        time.Time
	totalElapsedTime float64
	totalDistance    float64
	calories         float64
	avgPower         float64
	maxPower         float64
	avgHR            float64
	maxHR            float64
	tss              float64
	sport            typedef.Sport
	subSport         typedef.SubSport
}

// ParseFitFile decodes a FIT activity file into an ActivityRecord. Multiple
// sessions (multisport) are merged: totals are summed, the sport comes from
// the first session. The record ID is left empty for the caller to assign.
//
// StartTime is returned in the athlete's local zone. The offset comes from
// the Activity message's local timestamp; files without one use fallback
// (UTC when nil).
func ParseFitFile(data []byte, fallback *time.Location) (*types.ActivityRecord, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	fitDec := decoder.New(bytes.NewReader(data))

	var samples []powerSample
	var sessions []sessionInfo
	var startTime time.Time
	var local *time.Location

	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIT file: %w", err)
		}

		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			switch msg.Num {
			case typedef.MesgNumFileId:
				fileId := mesgdef.NewFileId(msg)
				if startTime.IsZero() && !fileId.TimeCreated.IsZero() {
					startTime = fileId.TimeCreated.UTC()
				}

			case typedef.MesgNumRecord:
				if s, ok := parseRecord(msg); ok {
					samples = append(samples, s)
				}

			case typedef.MesgNumSession:
				sessions = append(sessions, parseSession(msg))

			case typedef.MesgNumActivity:
				if loc, ok := activityZone(msg); ok {
					local = loc
				}
			}
		}
	}

	if len(sessions) == 0 {
		return nil, ErrNoSession
	}

	merged := mergeSessions(sessions)
	if !merged.startTime.IsZero() {
		startTime = merged.startTime
	}
	if local == nil {
		local = fallback
	}
	if local != nil {
		startTime = startTime.In(local)
	}

	activity := &types.ActivityRecord{
		SportTypeRaw:        SportLabel(merged.sport, merged.subSport),
		StartTime:           startTime,
		DurationSeconds:     positive(merged.totalElapsedTime),
		DistanceMeters:      positive(merged.totalDistance),
		Calories:            positive(merged.calories),
		AveragePower:        positive(merged.avgPower),
		MaxPower:            positive(merged.maxPower),
		AverageHeartRate:    positive(merged.avgHR),
		MaxHeartRate:        positive(merged.maxHR),
		TrainingStressScore: positive(merged.tss),
	}

	if efforts := power.BestEfforts(resample(samples)); len(efforts) > 0 {
		activity.BestEffortPower = efforts
	}

	return activity, nil
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// activityZone derives the recording device's zone from the difference
// between the activity's local and UTC timestamps, rounded to 15 minutes.
func activityZone(msg *proto.Message) (*time.Location, bool) {
	act := mesgdef.NewActivity(msg)
	if act.Timestamp.IsZero() || act.LocalTimestamp.IsZero() {
		return nil, false
	}
	offset := act.LocalTimestamp.Sub(act.Timestamp).Round(15 * time.Minute)
	if offset > maxUTCOffset || offset < -maxUTCOffset {
		return nil, false
	}
	return time.FixedZone("", int(offset/time.Second)), true
}

func parseRecord(msg *proto.Message) (powerSample, bool) {
	recordMsg := mesgdef.NewRecord(msg)
	if recordMsg.Timestamp.IsZero() || recordMsg.Power == invalidUint16 {
		return powerSample{}, false
	}
	return powerSample{ts: recordMsg.Timestamp.UTC(), watts: float64(recordMsg.Power)}, true
}

func parseSession(msg *proto.Message) sessionInfo {
	s := mesgdef.NewSession(msg)
	info := sessionInfo{
		startTime: s.StartTime.UTC(),
		sport:     s.Sport,
		subSport:  s.SubSport,
	}
	if s.TotalElapsedTime != invalidUint32 {
		info.totalElapsedTime = float64(s.TotalElapsedTime) / 1000
	}
	if s.TotalDistance != invalidUint32 {
		info.totalDistance = float64(s.TotalDistance) / 100
	}
	if s.TotalCalories != invalidUint16 {
		info.calories = float64(s.TotalCalories)
	}
	if s.AvgPower != invalidUint16 {
		info.avgPower = float64(s.AvgPower)
	}
	if s.MaxPower != invalidUint16 {
		info.maxPower = float64(s.MaxPower)
	}
	if s.AvgHeartRate != invalidUint8 {
		info.avgHR = float64(s.AvgHeartRate)
	}
	if s.MaxHeartRate != invalidUint8 {
		info.maxHR = float64(s.MaxHeartRate)
	}

	switch {
	case s.TrainingStressScore != invalidUint16:
		info.tss = float64(s.TrainingStressScore) / 10
	case s.NormalizedPower != invalidUint16 && s.ThresholdPower != invalidUint16 && s.ThresholdPower > 0:
		// Device did not record TSS but knows the athlete's threshold.
		info.tss = TrainingStress(info.totalElapsedTime, float64(s.NormalizedPower), float64(s.ThresholdPower))
	}
	return info
}

// TrainingStress computes TSS from normalized power and threshold power.
func TrainingStress(seconds, normalizedPower, ftp float64) float64 {
	if seconds <= 0 || normalizedPower <= 0 || ftp <= 0 {
		return 0
	}
	intensity := normalizedPower / ftp
	return seconds * normalizedPower * intensity / (ftp * 3600) * 100
}

func mergeSessions(sessions []sessionInfo) sessionInfo {
	merged := sessions[0]
	var weightedPower, weightedHR float64
	var maxP, maxHR float64
	var elapsed, distance, calories, tss float64

	for _, s := range sessions {
		elapsed += s.totalElapsedTime
		distance += s.totalDistance
		calories += s.calories
		tss += s.tss
		weightedPower += s.avgPower * s.totalElapsedTime
		weightedHR += s.avgHR * s.totalElapsedTime
		maxP = max(maxP, s.maxPower)
		maxHR = max(maxHR, s.maxHR)
	}

	merged.totalElapsedTime = elapsed
	merged.totalDistance = distance
	merged.calories = calories
	merged.tss = tss
	merged.maxPower = maxP
	merged.maxHR = maxHR
	if len(sessions) > 1 && elapsed > 0 {
		merged.avgPower = weightedPower / elapsed
		merged.avgHR = weightedHR / elapsed
	}
	return merged
}

// resample spreads power samples onto a 1 Hz grid starting at the first
// sample. Gaps (auto-pause, dropouts) count as zero watts.
func resample(samples []powerSample) []float64 {
	if len(samples) == 0 {
		return nil
	}
	start := samples[0].ts
	var last int
	for _, s := range samples {
		last = max(last, int(s.ts.Sub(start)/time.Second))
	}
	if last >= maxStreamSeconds {
		last = maxStreamSeconds - 1
	}

	stream := make([]float64, last+1)
	for _, s := range samples {
		i := int(s.ts.Sub(start) / time.Second)
		if i < 0 || i > last {
			continue
		}
		stream[i] = s.watts
	}
	return stream
}

// SportLabel maps FIT sport/sub-sport onto Garmin Connect typeKeys so
// uploaded files classify the same way as synced activities.
func SportLabel(sport typedef.Sport, subSport typedef.SubSport) string {
	switch sport {
	case typedef.SportRunning:
		switch subSport {
		case typedef.SubSportTrail:
			return "trail_running"
		case typedef.SubSportTreadmill:
			return "treadmill_running"
		case typedef.SubSportTrack:
			return "track_running"
		case typedef.SubSportVirtualActivity:
			return "virtual_run"
		default:
			return "running"
		}

	case typedef.SportCycling:
		switch subSport {
		case typedef.SubSportRoad:
			return "road_biking"
		case typedef.SubSportVirtualActivity:
			return "virtual_ride"
		case typedef.SubSportIndoorCycling:
			return "indoor_cycling"
		case typedef.SubSportMountain:
			return "mountain_biking"
		case typedef.SubSportGravelCycling:
			return "gravel_cycling"
		case typedef.SubSportCyclocross:
			return "cyclocross"
		case typedef.SubSportEBikeFitness:
			return "e_bike_fitness"
		case typedef.SubSportEBikeMountain:
			return "e_bike_mountain"
		default:
			return "cycling"
		}

	case typedef.SportSwimming:
		switch subSport {
		case typedef.SubSportLapSwimming:
			return "lap_swimming"
		case typedef.SubSportOpenWater:
			return "open_water_swimming"
		default:
			return "swimming"
		}

	case typedef.SportTraining:
		switch subSport {
		case typedef.SubSportStrengthTraining:
			return "strength_training"
		case typedef.SubSportYoga:
			return "yoga"
		case typedef.SubSportPilates:
			return "pilates"
		case typedef.SubSportHiit:
			return "hiit"
		default:
			return "fitness_equipment"
		}

	case typedef.SportWalking:
		return "walking"
	case typedef.SportHiking:
		return "hiking"
	case typedef.SportRowing:
		return "rowing"
	case typedef.SportCrossCountrySkiing:
		return "cross_country_skiing_ws"
	default:
		return "other"
	}
}
