package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"flowsim/pkg/apperror"
)

// Metrics is the container for one simulation run's counters. Unlike the
// teacher's long-lived gRPC server metrics, flowsim is a one-shot CLI: a
// private registry is populated during the run and dumped to a text file on
// exit instead of served over HTTP (see Dump).
type Metrics struct {
	registry *prometheus.Registry

	StepsTotal          prometheus.Counter
	PacketsArrivedTotal prometheus.Counter
	ZipperMergesTotal   prometheus.Counter
	TravelTimeSteps     prometheus.Histogram
	EdgeDispatchTotal   *prometheus.CounterVec
	RunDurationSeconds  prometheus.Histogram
}

// New creates a Metrics container registered on its own private registry,
// under the namespace "flowsim".
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := prometheus.WrapRegistererWith(nil, registry)

	m := &Metrics{
		registry: registry,

		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowsim",
			Name:      "steps_total",
			Help:      "Total number of simulation time steps executed",
		}),

		PacketsArrivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowsim",
			Name:      "packets_arrived_total",
			Help:      "Total number of packets that reached their destination",
		}),

		ZipperMergesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowsim",
			Name:      "zipper_merges_total",
			Help:      "Total number of packets dispatched by the zipper merge",
		}),

		TravelTimeSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowsim",
			Name:      "travel_time_steps",
			Help:      "Distribution of packet travel times, in simulation steps",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 500, 1000, 5000},
		}),

		EdgeDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowsim",
			Name:      "edge_dispatch_total",
			Help:      "Total number of packets dispatched onto each edge",
		}, []string{"edge_id"}),

		RunDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowsim",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the simulation run",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	factory.MustRegister(
		m.StepsTotal,
		m.PacketsArrivedTotal,
		m.ZipperMergesTotal,
		m.TravelTimeSteps,
		m.EdgeDispatchTotal,
		m.RunDurationSeconds,
		NewRuntimeCollector("flowsim"),
	)

	return m
}

// Dump writes every registered metric in Prometheus text exposition format
// to path, overwriting it. Grounded in the teacher's promhttp.Handler use,
// adapted from "serve on /metrics" to "write once on exit" since flowsim has
// no long-lived process to scrape.
func (m *Metrics) Dump(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to gather metrics")
	}

	f, err := os.Create(path)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to create metrics output file")
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return apperror.Wrap(err, apperror.CodeInternal, "failed to encode metric family")
		}
	}
	return nil
}
