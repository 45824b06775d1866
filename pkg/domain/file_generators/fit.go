package file_generators

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
)

// Workout describes a 1 Hz activity to encode. Power and HeartRate are
// per-second streams; either may be empty.
type Workout struct {
	Sport    typedef.Sport
	SubSport typedef.SubSport
	// StartTime outside UTC also records its zone offset as the
	// activity's local timestamp.
	StartTime time.Time

	Power     []uint16
	HeartRate []uint8

	DistanceMeters float64
	Calories       uint16
	// TSS is written to the session when positive.
	TSS float64
	// NormalizedPower and ThresholdPower are written when positive.
	NormalizedPower uint16
	ThresholdPower  uint16
}

func (w *Workout) seconds() int {
	return max(len(w.Power), len(w.HeartRate))
}

// GenerateFitFile encodes the workout as a single-session FIT activity.
func GenerateFitFile(w *Workout) ([]byte, error) {
	if w == nil {
		return nil, errors.New("workout cannot be nil")
	}
	if w.StartTime.IsZero() {
		return nil, errors.New("workout needs a start time")
	}
	n := w.seconds()
	if n == 0 {
		return nil, errors.New("workout has no samples")
	}

	start := w.StartTime.UTC()
	end := start.Add(time.Duration(n) * time.Second)

	fit := &proto.FIT{
		Messages: make([]proto.Message, 0, n+4),
	}

	fileId := mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(1).
		SetTimeCreated(start)
	fit.Messages = append(fit.Messages, fileId.ToMesg(nil))

	var powerSum, powerMax, hrSum, hrMax, hrCount int
	for i := 0; i < n; i++ {
		rec := mesgdef.NewRecord(nil).SetTimestamp(start.Add(time.Duration(i) * time.Second))
		if i < len(w.Power) {
			p := w.Power[i]
			rec.SetPower(p)
			powerSum += int(p)
			powerMax = max(powerMax, int(p))
		}
		if i < len(w.HeartRate) {
			hr := w.HeartRate[i]
			rec.SetHeartRate(hr)
			hrSum += int(hr)
			hrMax = max(hrMax, int(hr))
			hrCount++
		}
		fit.Messages = append(fit.Messages, rec.ToMesg(nil))
	}

	elapsedMs := uint32(n * 1000)
	session := mesgdef.NewSession(nil).
		SetTimestamp(end).
		SetStartTime(start).
		SetSport(w.Sport).
		SetSubSport(w.SubSport).
		SetTotalElapsedTime(elapsedMs).
		SetTotalTimerTime(elapsedMs)

	if w.DistanceMeters > 0 {
		session.SetTotalDistance(uint32(w.DistanceMeters * 100))
	}
	if w.Calories > 0 {
		session.SetTotalCalories(w.Calories)
	}
	if len(w.Power) > 0 {
		session.SetAvgPower(uint16(powerSum / len(w.Power)))
		session.SetMaxPower(uint16(powerMax))
	}
	if hrCount > 0 {
		session.SetAvgHeartRate(uint8(hrSum / hrCount))
		session.SetMaxHeartRate(uint8(hrMax))
	}
	if w.TSS > 0 {
		session.SetTrainingStressScore(uint16(w.TSS * 10))
	}
	if w.NormalizedPower > 0 {
		session.SetNormalizedPower(w.NormalizedPower)
	}
	if w.ThresholdPower > 0 {
		session.SetThresholdPower(w.ThresholdPower)
	}
	fit.Messages = append(fit.Messages, session.ToMesg(nil))

	activityMsg := mesgdef.NewActivity(nil).
		SetTimestamp(end).
		SetType(typedef.ActivityManual).
		SetNumSessions(1)
	if w.StartTime.Location() != time.UTC {
		_, offset := w.StartTime.Zone()
		// FIT local timestamps are wall-clock seconds on the UTC epoch.
		activityMsg.SetLocalTimestamp(end.Add(time.Duration(offset) * time.Second))
	}
	fit.Messages = append(fit.Messages, activityMsg.ToMesg(nil))

	var buf bytes.Buffer
	enc := encoder.New(&buf)
	if err := enc.Encode(fit); err != nil {
		return nil, fmt.Errorf("failed to encode FIT file: %w", err)
	}
	return buf.Bytes(), nil
}

// ConstantPower builds a stream of seconds samples at watts.
func ConstantPower(seconds int, watts uint16) []uint16 {
	out := make([]uint16, seconds)
	for i := range out {
		out[i] = watts
	}
	return out
}
