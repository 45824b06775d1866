package power

import "github.com/vitalsync/server/pkg/types"

// PeakPower finds the highest average power over a rolling window of
// windowSec samples, assuming one sample per second. It returns false when
// the stream is shorter than the window.
func PeakPower(samples []float64, windowSec int) (float64, bool) {
	if windowSec <= 0 || len(samples) < windowSec {
		return 0, false
	}

	var windowSum float64
	for i := 0; i < windowSec; i++ {
		windowSum += samples[i]
	}
	maxSum := windowSum

	for i := windowSec; i < len(samples); i++ {
		windowSum += samples[i] - samples[i-windowSec]
		if windowSum > maxSum {
			maxSum = windowSum
		}
	}

	return maxSum / float64(windowSec), true
}

// BestEfforts computes PeakPower for every canonical duration the stream is
// long enough for.
func BestEfforts(samples []float64) map[types.EffortDuration]float64 {
	efforts := make(map[types.EffortDuration]float64, len(types.EffortDurations))
	for _, d := range types.EffortDurations {
		if p, ok := PeakPower(samples, d.Seconds()); ok && p > 0 {
			efforts[d] = p
		}
	}
	return efforts
}
