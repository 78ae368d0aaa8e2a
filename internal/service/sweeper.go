package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamnotify/channel-resolver/config"
	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	obserrors "github.com/streamnotify/channel-resolver/internal/observability/errors"
	"github.com/streamnotify/channel-resolver/internal/observability/metrics"
	"github.com/streamnotify/channel-resolver/internal/observability/statsd"
)

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Store   core.JobStore        // Required: job record store
	Bus     core.EventPublisher  // Required: event publisher
	Config  config.SweeperConfig // Required: sweeper configuration
	Logger  *slog.Logger         // Optional: structured logger
	Metrics statsd.Sink          // Optional: metrics sink (StatsD-compatible)
	Now     func() time.Time     // Optional: clock override for tests
}

// SweeperService re-publishes submission events for jobs stuck in the
// resolving state, typically left behind by a worker crash. Workers treat
// redelivery idempotently, so a sweep can never regress a job.
type SweeperService struct {
	store   core.JobStore
	bus     core.EventPublisher
	config  config.SweeperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("EventPublisher is required")
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
		logger.Debug("SweeperService initialized",
			"interval", opts.Config.Interval,
			"resolving_max_age", opts.Config.ResolvingMaxAge,
			"batch_size", opts.Config.BatchSize,
		)
	}

	return &SweeperService{
		store:   opts.Store,
		bus:     opts.Bus,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service", "interval", s.config.Interval)
	}

	// Jitter prevents a thundering herd when multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.sweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
				// Continue running despite errors
			}
		}
	}
}

// waitWithJitter delays startup by up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

// sweep finds stuck jobs and re-publishes their submission events.
func (s *SweeperService) sweep(ctx context.Context) error {
	start := s.now()
	cutoff := start.Add(-s.config.ResolvingMaxAge)

	stuck, err := s.store.StuckResolving(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		s.emitSweep(0, s.now().Sub(start), err)
		return fmt.Errorf("scan stuck jobs: %w", err)
	}

	var republished int64
	var errs []error
	for _, rec := range stuck {
		if ctx.Err() != nil {
			break
		}

		evt := model.JobSubmitted{JobID: rec.JobID, Channel: rec.ChannelInput, Email: rec.Email}
		if err := s.bus.Publish(ctx, model.TopicJobSubmitted, evt); err != nil {
			errs = append(errs, fmt.Errorf("republish %s: %w", rec.JobID, err))
			continue
		}
		republished++

		if s.logger != nil {
			s.logger.InfoContext(ctx, "republished stuck job",
				"job_id", rec.JobID,
				"resolving_since", rec.UpdatedAt,
			)
		}
	}

	elapsed := s.now().Sub(start)
	joined := errors.Join(errs...)
	s.emitSweep(republished, elapsed, joined)

	if republished > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "sweep complete",
			"republished", republished,
			"scanned", len(stuck),
			"elapsed", elapsed,
		)
	}

	if joined != nil {
		return fmt.Errorf("sweep failed: %w", joined)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return nil
}

func (s *SweeperService) emitSweep(republished int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if republished == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"stage":  metrics.StageSweep,
		"result": result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("sweeper.sweep", 1, tags)
	if republished > 0 {
		s.metrics.Count("sweeper.jobs_republished", republished, metrics.CloneTags(tags))
	}
	if elapsed > 0 {
		s.metrics.Timing("sweeper.sweep_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("sweeper.last_success_epoch", float64(s.now().Unix()), nil)
	}
}

func (s *SweeperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}
