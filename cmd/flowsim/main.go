package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"flowsim/internal/ioadapter"
	"flowsim/internal/sim"
	"flowsim/pkg/config"
	"flowsim/pkg/logger"
	"flowsim/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	if len(os.Args) != 2 {
		logger.Error("usage: flowsim <instance-dir>")
		os.Exit(2)
	}
	instanceDir := os.Args[1]

	runID := uuid.New().String()
	log := logger.WithRunID(runID)

	m := metrics.New()
	runTimer := metrics.NewTimer(m.RunDurationSeconds)

	log.Info("loading instance", "dir", instanceDir)
	net, names, err := ioadapter.LoadInstance(instanceDir)
	if err != nil {
		log.Error("failed to load instance", "error", err)
		os.Exit(exitCode(err))
	}
	log.Info("instance loaded", "vertices", len(names), "edges", len(net.Edges), "packets", len(net.Packets))

	simulator := sim.New(net)
	start := time.Now()
	if err := simulator.Run(); err != nil {
		log.Error("simulation failed", "error", err)
		os.Exit(exitCode(err))
	}
	elapsed := time.Since(start)

	m.StepsTotal.Add(float64(simulator.Stats.StepsExecuted))
	m.PacketsArrivedTotal.Add(float64(net.PacketsArrived))
	m.ZipperMergesTotal.Add(float64(simulator.Stats.ZipperMerges))
	for edgeID, count := range simulator.Stats.EdgeDispatchCounts {
		m.EdgeDispatchTotal.WithLabelValues(fmt.Sprintf("%d", edgeID)).Add(float64(count))
	}
	for i, p := range net.Packets {
		if at := net.ArrivalTimes[i]; at != nil {
			m.TravelTimeSteps.Observe(float64(*at - p.ReleaseTime))
		}
	}

	log.Info("simulation completed",
		"steps", simulator.Stats.StepsExecuted,
		"final_time", net.Time,
		"packets_arrived", net.PacketsArrived,
		"wall_clock", elapsed,
	)

	if err := ioadapter.WriteResults(instanceDir, runID, net); err != nil {
		log.Error("failed to write results", "error", err)
		os.Exit(exitCode(err))
	}

	if cfg.Report.XLSXEnabled {
		if err := ioadapter.WriteXLSXReport(instanceDir, net, names, simulator.Stats.EdgeDispatchCounts, cfg.Report.MaxArrivalsInSheet); err != nil {
			log.Warn("failed to write xlsx report", "error", err)
		}
	}

	runTimer.ObserveDuration()
	if cfg.Metrics.Enabled {
		if err := m.Dump(cfg.Metrics.OutputPath); err != nil {
			log.Warn("failed to dump metrics", "error", err)
		}
	}

	fmt.Fprintf(os.Stderr, "flowsim: %d packets arrived by time %d (%d steps, %s)\n",
		net.PacketsArrived, net.Time, simulator.Stats.StepsExecuted, elapsed)
}

// exitCode maps an error to a process exit code. Both *apperror.Error and
// *apperror.ValidationErrors implement ExitCode(); anything else is an
// unexpected internal failure.
func exitCode(err error) int {
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		return coder.ExitCode()
	}
	return 1
}
