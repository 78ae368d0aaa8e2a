package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	apperrors "github.com/streamnotify/channel-resolver/internal/errors"
	"github.com/streamnotify/channel-resolver/internal/observability/metrics"
	"github.com/streamnotify/channel-resolver/internal/observability/statsd"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmitRequest carries the fields of a submission.
type SubmitRequest struct {
	Channel string `json:"channel"`
	Email   string `json:"email"`
}

// IntakeServiceOptions groups dependencies for IntakeService.
type IntakeServiceOptions struct {
	Store   core.JobStore       // Required: job record store
	Bus     core.EventPublisher // Required: event publisher
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
	Now     func() time.Time    // Optional: clock override for tests
}

// IntakeService accepts submissions, persists a queued job record, and
// announces the job on the bus. The record is written before the event is
// published so a consumer can always read what it was told about.
type IntakeService struct {
	store   core.JobStore
	bus     core.EventPublisher
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewIntakeService constructs a new IntakeService.
func NewIntakeService(opts IntakeServiceOptions) (*IntakeService, error) {
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
		logger = opts.Logger.With("component", "intake_service")
	}

	return &IntakeService{
		store:   opts.Store,
		bus:     opts.Bus,
		logger:  logger,
		metrics: opts.Metrics,
		now:     now,
	}, nil
}

// Submit validates a submission, persists the queued record, and publishes
// the submission event. The returned record carries the generated job ID.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (model.JobRecord, error) {
	channel := strings.TrimSpace(req.Channel)
	if channel == "" {
		return model.JobRecord{}, apperrors.ValidationField("channel", "channel is required")
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return model.JobRecord{}, apperrors.ValidationField("email", "email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return model.JobRecord{}, apperrors.ValidationField("email", "email is not a valid address")
	}

	rec := model.NewJobRecord(channel, email, s.now())

	if err := s.store.Create(ctx, rec); err != nil {
		s.emitSubmission(metrics.ResultError, err)
		return model.JobRecord{}, fmt.Errorf("create job record: %w", err)
	}

	evt := model.JobSubmitted{JobID: rec.JobID, Channel: rec.ChannelInput, Email: rec.Email}
	if err := s.bus.Publish(ctx, model.TopicJobSubmitted, evt); err != nil {
		// The record exists but no worker will hear about it; it expires on
		// its own. Surface the failure to the caller so they can resubmit.
		s.emitSubmission(metrics.ResultError, err)
		return model.JobRecord{}, fmt.Errorf("publish submission event: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job submitted",
			"job_id", rec.JobID,
			"channel", rec.ChannelInput,
		)
	}
	s.emitSubmission(metrics.ResultSuccess, nil)

	return rec, nil
}

func (s *IntakeService) emitSubmission(result string, err error) {
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Stage:  metrics.StageIntake,
		Status: string(model.JobStatusQueued),
		Result: result,
		Err:    err,
	})
}
