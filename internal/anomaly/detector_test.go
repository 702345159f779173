package anomaly_test

import (
	"strings"
	"testing"

	"github.com/septivank/meter-reading-service/internal/anomaly"
)

func ptr(v int64) *int64 { return &v }

func TestCheck_NilValue(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	if flagged, _ := d.Check(nil, []int64{100, 90, 80}); flagged {
		t.Error("Expected nil value not to be flagged")
	}
}

func TestCheck_NoHistory(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	if flagged, reason := d.Check(ptr(123456), nil); flagged {
		t.Errorf("Expected no anomaly without history, got %s", reason)
	}
}

func TestCheck_Negative(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	flagged, reason := d.Check(ptr(-5), nil)
	if !flagged || reason != "negative value" {
		t.Errorf("Expected negative value anomaly, got %v %q", flagged, reason)
	}
}

func TestCheck_BelowLastConfirmed(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	flagged, reason := d.Check(ptr(90), []int64{100})
	if !flagged {
		t.Fatal("Expected a regression to be flagged")
	}
	if !strings.Contains(reason, "below the last confirmed reading 100") {
		t.Errorf("Unexpected reason %q", reason)
	}
}

func TestCheck_SpikeNeedsEnoughHistory(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	if flagged, _ := d.Check(ptr(1000), []int64{100, 90}); flagged {
		t.Error("Expected no spike detection with only 2 data points")
	}
}

func TestCheck_Spike(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	flagged, reason := d.Check(ptr(1000), []int64{110, 100, 90})
	if !flagged {
		t.Fatal("Expected spike to be flagged")
	}
	if !strings.HasPrefix(reason, "sudden spike detected") {
		t.Errorf("Unexpected reason %q", reason)
	}
}

func TestCheck_NormalGrowth(t *testing.T) {
	d := anomaly.NewDetector(3.0, 3)

	if flagged, reason := d.Check(ptr(120), []int64{110, 100, 90}); flagged {
		t.Errorf("Expected normal growth, got %s", reason)
	}
}
