package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	if a != b {
		t.Fatal("NewMetrics() returned two different instances")
	}
}

func TestLikeToggleCounter(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.LikeToggleTotal.WithLabelValues("video", "liked"))
	m.LikeToggleTotal.WithLabelValues("video", "liked").Inc()
	after := testutil.ToFloat64(m.LikeToggleTotal.WithLabelValues("video", "liked"))
	if after-before != 1 {
		t.Errorf("counter moved by %v, want 1", after-before)
	}
}

func TestStatus(t *testing.T) {
	if Status(nil) != "success" || Status(errors.New("x")) != "error" {
		t.Error("Status() labels mismatch")
	}
}
