package anomaly

import (
	"fmt"
)

// Detector flags inferred readings that are implausible against the customer's
// confirmed history
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// Check compares an inferred value with confirmed history ordered newest first.
// A nil value (nothing inferred) is never flagged.
func (d *Detector) Check(value *int64, history []int64) (bool, string) {
	if value == nil {
		return false, ""
	}
	v := *value

	if v < 0 {
		return true, "negative value"
	}
	if len(history) == 0 {
		return false, ""
	}

	// meters are cumulative
	if latest := history[0]; v < latest {
		return true, fmt.Sprintf("value %d is below the last confirmed reading %d", v, latest)
	}

	if len(history) < d.minDataPointsForDetection {
		return false, ""
	}

	sum := 0.0
	for _, h := range history {
		sum += float64(h)
	}
	average := sum / float64(len(history))

	if average > 0 && float64(v) > d.spikeThreshold*average {
		return true, fmt.Sprintf("sudden spike detected: value %d exceeds %.1fx average %.2f",
			v, d.spikeThreshold, average)
	}

	return false, ""
}
