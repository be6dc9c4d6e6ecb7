package metrics

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.StepsTotal == nil {
		t.Error("StepsTotal should not be nil")
	}
	if m.EdgeDispatchTotal == nil {
		t.Error("EdgeDispatchTotal should not be nil")
	}
}

func TestRecordAndDump(t *testing.T) {
	m := New()

	m.StepsTotal.Add(3)
	m.PacketsArrivedTotal.Add(4)
	m.ZipperMergesTotal.Add(7)
	m.TravelTimeSteps.Observe(12)
	m.EdgeDispatchTotal.WithLabelValues("0").Inc()
	m.RunDurationSeconds.Observe(0.5)

	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.prom")
	if err := m.Dump(path); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read dumped metrics: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "flowsim_steps_total") {
		t.Error("expected flowsim_steps_total in dump")
	}
	if !strings.Contains(content, "flowsim_edge_dispatch_total") {
		t.Error("expected flowsim_edge_dispatch_total in dump")
	}
}

func TestRuntimeCollector(t *testing.T) {
	collector := NewRuntimeCollector("test")

	descCh := make(chan *prometheus.Desc, 10)
	collector.Describe(descCh)
	close(descCh)

	count := 0
	for range descCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 descriptors, got %d", count)
	}

	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	count = 0
	for range metricCh {
		count++
	}
	if count < 5 {
		t.Errorf("expected at least 5 metrics, got %d", count)
	}
}

func TestRuntimeCollector_GCPause(t *testing.T) {
	runtime.GC()

	collector := NewRuntimeCollector("test")
	metricCh := make(chan prometheus.Metric, 10)
	collector.Collect(metricCh)
	close(metricCh)

	found := false
	for range metricCh {
		found = true
	}
	if !found {
		t.Error("should have collected at least one metric")
	}
}

func TestTimer(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration",
		Buckets: []float64{.01, .1, 1},
	})

	timer := NewTimer(histogram)

	time.Sleep(10 * time.Millisecond)

	duration := timer.ObserveDuration()
	if duration < 10*time.Millisecond {
		t.Errorf("duration = %v, expected >= 10ms", duration)
	}
}
