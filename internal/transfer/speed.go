package transfer

import (
	"github.com/blockgate/blockgate/internal/constants"
)

// speedWindow keeps a bounded rolling window of instantaneous per-block
// throughput samples and reports their average.
type speedWindow struct {
	samples []float64
	max     int
}

func newSpeedWindow(max int) *speedWindow {
	if max <= 0 {
		max = constants.SpeedSampleWindow
	}
	return &speedWindow{samples: make([]float64, 0, max), max: max}
}

// Add records one bytes/sec sample, evicting the oldest when full.
func (w *speedWindow) Add(sample float64) {
	if sample <= 0 {
		return
	}
	w.samples = append(w.samples, sample)
	if len(w.samples) > w.max {
		w.samples = w.samples[1:]
	}
}

// Average returns the mean of the recorded samples, 0 when empty.
func (w *speedWindow) Average() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s
	}
	return sum / float64(len(w.samples))
}

// estimateRemaining converts remaining bytes and a smoothed speed into a
// remaining-time estimate, flooring at floorSecs when throughput is
// negligible.
func estimateRemaining(remainingBytes int64, avgSpeed float64, floorSecs int64) int64 {
	if avgSpeed > constants.SpeedFloor {
		return int64(float64(remainingBytes) / avgSpeed)
	}
	return floorSecs
}
