// Package profiling starts continuous profiling when a Pyroscope server is configured.
package profiling

import (
	"github.com/grafana/pyroscope-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/config"
)

// Profiler stops a running profiler.
type Profiler interface {
	Stop() error
}

type noop struct{}

func (noop) Stop() error { return nil }

// Start begins profiling, or returns a no-op profiler when no server address is set.
func Start(cfg config.ProfilingConfig, tags map[string]string) (Profiler, error) {
	if cfg.ServerAddress == "" {
		return noop{}, nil
	}

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.AppName,
		ServerAddress:   cfg.ServerAddress,
		Tags:            tags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start profiler")
	}
	log.Info().Str("server", cfg.ServerAddress).Msg("Continuous profiling enabled")
	return p, nil
}
