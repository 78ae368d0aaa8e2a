// Package model defines the core data types used throughout the channel resolution system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a resolution job.
type JobStatus string

const (
	// JobStatusQueued indicates a job has been accepted and is waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusResolving indicates a worker is resolving the channel identifier.
	JobStatusResolving JobStatus = "resolving"
	// JobStatusResolved indicates the channel identifier was resolved. Terminal.
	JobStatusResolved JobStatus = "resolved"
	// JobStatusFailed indicates resolution did not produce a result. Terminal.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusResolving || s == JobStatusResolved ||
		s == JobStatusFailed
}

// Terminal returns true for statuses that admit no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusResolved || s == JobStatusFailed
}

// rank orders statuses along the state machine. Transitions may only
// increase rank; equal-rank rewrites of terminal states are rejected.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusResolving:
		return 1
	case JobStatusResolved, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic state machine queued -> resolving -> resolved | failed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// ErrTerminalState is returned when a mutation targets a job that already
// reached resolved or failed.
var ErrTerminalState = errors.New("job is in a terminal state")

// JobRecord is the single persistent entity tracking one submission.
//
// ChannelID and ChannelName are set if and only if Status is resolved;
// Error is set if and only if Status is failed. A record missing from the
// store means the job expired or never existed.
type JobRecord struct {
	JobID        string    `json:"jobId"`
	ChannelInput string    `json:"channelInput"`
	Email        string    `json:"email"`
	Status       JobStatus `json:"status"`
	ChannelID    string    `json:"channelId,omitempty"`
	ChannelName  string    `json:"channelName,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewJobID generates a collision-resistant job identifier. Uniqueness is
// best-effort: the ID is only a lookup key within the record TTL window.
func NewJobID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("job_%d_%s", now.UnixMilli(), suffix)
}

// NewJobRecord creates a queued record for a fresh submission.
func NewJobRecord(channelInput, email string, now time.Time) JobRecord {
	return JobRecord{
		JobID:        NewJobID(now),
		ChannelInput: channelInput,
		Email:        email,
		Status:       JobStatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkResolving moves the record into the resolving state.
func (r *JobRecord) MarkResolving(now time.Time) error {
	return r.transition(JobStatusResolving, now)
}

// MarkResolved moves the record into the resolved terminal state with the
// canonical identity returned by the directory.
func (r *JobRecord) MarkResolved(channelID, channelName string, now time.Time) error {
	if channelID == "" {
		return errors.New("channel ID is required for a resolved record")
	}
	if err := r.transition(JobStatusResolved, now); err != nil {
		return err
	}
	r.ChannelID = channelID
	r.ChannelName = channelName
	r.Error = ""
	return nil
}

// MarkFailed moves the record into the failed terminal state with a
// human-readable reason.
func (r *JobRecord) MarkFailed(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		reason = "resolution failed"
	}
	if err := r.transition(JobStatusFailed, now); err != nil {
		return err
	}
	r.ChannelID = ""
	r.ChannelName = ""
	r.Error = reason
	return nil
}

func (r *JobRecord) transition(next JobStatus, now time.Time) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, r.Status)
	}
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid transition %s -> %s", r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Validate checks the record's internal invariants.
func (r *JobRecord) Validate() error {
	if r.JobID == "" {
		return errors.New("jobId is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	if (r.ChannelID != "" || r.ChannelName != "") && r.Status != JobStatusResolved {
		return errors.New("channel identity set on a non-resolved record")
	}
	if r.Status == JobStatusResolved && r.ChannelID == "" {
		return errors.New("resolved record missing channelId")
	}
	if (r.Error != "") != (r.Status == JobStatusFailed) {
		return errors.New("error must be set exactly when status is failed")
	}
	return nil
}
