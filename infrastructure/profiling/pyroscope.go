package profiling

import (
	"fmt"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/jonesrussell/feedback-api/infrastructure/logger"
)

// PyroscopeConfig configures continuous profiling.
type PyroscopeConfig struct {
	ServiceName string
	ServerURL   string
	Environment string
	Version     string
}

// PyroscopeProfiler wraps a running Pyroscope profiler.
type PyroscopeProfiler struct {
	profiler *pyroscope.Profiler
}

// StartPyroscope starts CPU, allocation and goroutine profiling.
func StartPyroscope(cfg PyroscopeConfig, log logger.Logger) (*PyroscopeProfiler, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.ServerURL,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"environment": cfg.Environment,
			"version":     cfg.Version,
			"hostname":    hostname,
			"go_version":  runtime.Version(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	log.Info("Pyroscope continuous profiling started",
		logger.String("application", cfg.ServiceName),
		logger.String("server", cfg.ServerURL),
	)

	return &PyroscopeProfiler{profiler: profiler}, nil
}

// Stop flushes and stops the profiler. Safe on nil.
func (p *PyroscopeProfiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}
