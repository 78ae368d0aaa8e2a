package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamnotify/channel-resolver/config"
	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	"github.com/streamnotify/channel-resolver/internal/observability/metrics"
	"github.com/streamnotify/channel-resolver/internal/observability/statsd"
)

// ResolutionServiceOptions groups dependencies for ResolutionService.
type ResolutionServiceOptions struct {
	Store     core.JobStore          // Required: job record store
	Bus       core.EventBus          // Required: event bus
	Directory core.ChannelDirectory  // Required: channel directory
	Config    config.ResolverConfig  // Required: worker configuration
	Archive   core.ArchiveRepository // Optional: terminal outcome archive
	Logger    *slog.Logger           // Optional: structured logger
	Metrics   statsd.Sink            // Optional: metrics sink (StatsD-compatible)
	Now       func() time.Time       // Optional: clock override for tests
}

// ResolutionService consumes submission events and drives each job to a
// terminal state.
//
// Delivery is at-least-once, so every handler run starts by re-reading the
// record: a job that already reached a terminal state is skipped rather
// than re-resolved, and a job re-published by the sweeper resumes from
// resolving without an extra transition.
type ResolutionService struct {
	store     core.JobStore
	bus       core.EventBus
	directory core.ChannelDirectory
	archive   core.ArchiveRepository
	config    config.ResolverConfig
	logger    *slog.Logger
	metrics   statsd.Sink
	now       func() time.Time
}

// NewResolutionService constructs a new ResolutionService.
func NewResolutionService(opts ResolutionServiceOptions) (*ResolutionService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Bus == nil {
		return nil, errors.New("EventBus is required")
	}
	if opts.Directory == nil {
		return nil, errors.New("ChannelDirectory is required")
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "resolution_service")
		logger.Debug("ResolutionService initialized",
			"concurrency", opts.Config.Concurrency,
		)
	}

	return &ResolutionService{
		store:     opts.Store,
		bus:       opts.Bus,
		directory: opts.Directory,
		archive:   opts.Archive,
		config:    opts.Config,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// Run subscribes to submission events and processes them until the context
// is cancelled. Returns nil on graceful shutdown (context.Canceled), error
// otherwise.
func (s *ResolutionService) Run(ctx context.Context) error {
	events, err := s.bus.Subscribe(ctx, model.TopicJobSubmitted)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", model.TopicJobSubmitted, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting resolution service",
			"topic", model.TopicJobSubmitted,
			"concurrency", s.config.Concurrency,
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	for range s.config.Concurrency {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					if errors.Is(ctx.Err(), context.Canceled) {
						return nil
					}
					return ctx.Err()
				case raw, ok := <-events:
					if !ok {
						return nil
					}
					s.handleEvent(ctx, raw)
				}
			}
		})
	}

	return g.Wait()
}

// handleEvent processes one delivery. Handler failures are logged and
// counted, never returned: a bad event must not take the worker down.
func (s *ResolutionService) handleEvent(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "panic in event handler", "panic", r)
			}
			s.emitResolution("", metrics.ResultError, 0, fmt.Errorf("handler panic: %v", r))
		}
	}()

	var evt model.JobSubmitted
	if err := json.Unmarshal(raw, &evt); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "dropping undecodable event", "error", err)
		}
		s.emitResolution("", metrics.ResultError, 0, err)
		return
	}

	if !evt.Routable() {
		// No jobId or no email means no record to update and no user to
		// tell. Fabricating a destination would be worse than dropping.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "dropping unroutable event",
				"job_id", evt.JobID,
				"error", model.ErrUnroutableEvent,
			)
		}
		s.emitResolution("", metrics.ResultError, 0, model.ErrUnroutableEvent)
		return
	}

	s.resolveJob(ctx, evt)
}

func (s *ResolutionService) resolveJob(ctx context.Context, evt model.JobSubmitted) {
	start := s.now()

	rec, err := s.store.Get(ctx, evt.JobID)
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		// The record expired or was never written. The outcome still has a
		// destination, so the failure event goes out without a record write.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "job record missing, failing without record",
				"job_id", evt.JobID,
			)
		}
		s.publishFailed(ctx, evt.JobID, evt.Email, "job record expired before resolution")
		s.emitResolution(string(model.JobStatusFailed), metrics.ResultError, s.now().Sub(start), err)
		return
	case err != nil:
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "read job record", "job_id", evt.JobID, "error", err)
		}
		s.emitResolution("", metrics.ResultError, s.now().Sub(start), err)
		return
	}

	if rec.Status.Terminal() {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "skipping redelivered terminal job",
				"job_id", rec.JobID,
				"status", rec.Status,
			)
		}
		s.emitResolution(string(rec.Status), metrics.ResultNoop, 0, nil)
		return
	}

	// A swept job arrives already in resolving; only a queued job needs the
	// transition written.
	if rec.Status == model.JobStatusQueued {
		if err := rec.MarkResolving(s.now()); err != nil {
			s.logTransitionError(ctx, rec.JobID, err)
			return
		}
		if err := s.store.Update(ctx, rec); err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "write resolving status", "job_id", rec.JobID, "error", err)
			}
			s.emitResolution(string(model.JobStatusResolving), metrics.ResultError, s.now().Sub(start), err)
			return
		}
	}

	res, resolveErr := s.directory.Resolve(ctx, rec.ChannelInput)
	if resolveErr != nil {
		s.failJob(ctx, rec, failureReason(resolveErr), resolveErr)
		s.emitResolution(string(model.JobStatusFailed), metrics.ResultError, s.now().Sub(start), resolveErr)
		return
	}

	if err := rec.MarkResolved(res.ChannelID, res.ChannelName, s.now()); err != nil {
		s.logTransitionError(ctx, rec.JobID, err)
		return
	}
	if err := s.store.Update(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "write resolved status", "job_id", rec.JobID, "error", err)
		}
		s.emitResolution(string(model.JobStatusResolved), metrics.ResultError, s.now().Sub(start), err)
		return
	}

	if err := s.bus.Publish(ctx, model.TopicChannelResolved, model.ChannelResolved{
		JobID:       rec.JobID,
		Email:       rec.Email,
		ChannelID:   rec.ChannelID,
		ChannelName: rec.ChannelName,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "publish resolved event", "job_id", rec.JobID, "error", err)
	}

	s.archiveOutcome(ctx, rec)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job resolved",
			"job_id", rec.JobID,
			"channel_id", rec.ChannelID,
			"channel_name", rec.ChannelName,
		)
	}
	s.emitResolution(string(model.JobStatusResolved), metrics.ResultSuccess, s.now().Sub(start), nil)
}

// failJob writes the failed terminal state and publishes the failure event.
// The record write and the event are independent; a store failure never
// suppresses the notification.
func (s *ResolutionService) failJob(ctx context.Context, rec model.JobRecord, reason string, cause error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "job failed",
			"job_id", rec.JobID,
			"channel", rec.ChannelInput,
			"reason", reason,
			"error", cause,
		)
	}

	if err := rec.MarkFailed(reason, s.now()); err != nil {
		s.logTransitionError(ctx, rec.JobID, err)
	} else if err := s.store.Update(ctx, rec); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "write failed status", "job_id", rec.JobID, "error", err)
	}

	s.publishFailed(ctx, rec.JobID, rec.Email, reason)
	s.archiveOutcome(ctx, rec)
}

func (s *ResolutionService) publishFailed(ctx context.Context, jobID, email, reason string) {
	err := s.bus.Publish(ctx, model.TopicChannelResolutionFailed, model.ChannelResolutionFailed{
		JobID: jobID,
		Email: email,
		Error: reason,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "publish failure event", "job_id", jobID, "error", err)
	}
}

// archiveOutcome records a terminal outcome for audit. Best-effort: archive
// failures are logged and never alter the job's outcome.
func (s *ResolutionService) archiveOutcome(ctx context.Context, rec model.JobRecord) {
	if s.archive == nil || !rec.Status.Terminal() {
		return
	}
	if err := s.archive.RecordOutcome(ctx, rec); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "archive job outcome",
			"job_id", rec.JobID,
			"status", rec.Status,
			"error", err,
		)
	}
}

func (s *ResolutionService) logTransitionError(ctx context.Context, jobID string, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "job state transition rejected", "job_id", jobID, "error", err)
	}
	s.emitResolution("", metrics.ResultError, 0, err)
}

func (s *ResolutionService) emitResolution(status, result string, elapsed time.Duration, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Stage:    metrics.StageResolution,
		Status:   status,
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})
}

// failureReason maps a resolve error to the user-facing reason stored on
// the record and carried in the failure event.
func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrChannelNotFound):
		return "channel not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "directory lookup timed out"
	default:
		return err.Error()
	}
}
