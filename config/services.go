package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP submission intake server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeResolver runs the channel resolution worker.
	ServiceModeResolver ServiceMode = "resolver"
	// ServiceModeSweeper runs the stuck-job sweeper.
	ServiceModeSweeper ServiceMode = "sweeper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeResolver,
		ServiceModeSweeper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeResolver, ServiceModeSweeper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, resolver, sweeper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ResolverConfig contains resolution worker configuration.
type ResolverConfig struct {
	// Concurrency is the number of handler goroutines consuming submitted jobs.
	Concurrency int `env:"RESOLVER_CONCURRENCY" envDefault:"4"`
}

// Sanitize applies guardrails to resolver configuration values.
func (r *ResolverConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.Concurrency > 64 {
		r.Concurrency = 64
	}
}

// SweeperConfig contains stuck-job sweeper configuration.
//
// A job left in `resolving` by a worker crash has no other recovery path;
// the sweeper re-publishes its submission event so a healthy worker can
// finish it.
type SweeperConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"5m"`

	// ResolvingMaxAge is how long a job may sit in `resolving` before the
	// sweeper considers it stuck and re-publishes it.
	ResolvingMaxAge time.Duration `env:"SWEEPER_RESOLVING_MAX_AGE" envDefault:"10m"`

	// BatchSize is the maximum number of stuck jobs re-published per sweep.
	BatchSize int `env:"SWEEPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive store load
	if s.Interval < time.Minute {
		s.Interval = time.Minute
	}
	if s.ResolvingMaxAge < time.Minute {
		s.ResolvingMaxAge = time.Minute
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.BatchSize > 10000 {
		s.BatchSize = 10000
	}
}
