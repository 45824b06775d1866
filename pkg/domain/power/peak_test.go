package power

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitalsync/server/pkg/types"
)

func TestPeakPower(t *testing.T) {
	samples := []float64{100, 200, 300, 400, 500, 100, 100}

	p, ok := PeakPower(samples, 2)
	assert.True(t, ok)
	assert.Equal(t, 450.0, p)

	p, ok = PeakPower(samples, len(samples))
	assert.True(t, ok)
	assert.InDelta(t, 1700.0/7, p, 1e-9)

	_, ok = PeakPower(samples, 8)
	assert.False(t, ok)

	_, ok = PeakPower(samples, 0)
	assert.False(t, ok)
}

func TestBestEfforts(t *testing.T) {
	samples := make([]float64, 400)
	for i := range samples {
		samples[i] = 200
	}
	for i := 100; i < 105; i++ {
		samples[i] = 800
	}

	efforts := BestEfforts(samples)
	assert.Equal(t, 800.0, efforts[types.Effort5s])
	assert.Contains(t, efforts, types.Effort1m)
	assert.Contains(t, efforts, types.Effort5m)
	assert.NotContains(t, efforts, types.Effort20m, "400 samples cannot cover 20 minutes")
}
