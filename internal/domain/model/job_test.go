package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{"queued to resolving", JobStatusQueued, JobStatusResolving, true},
		{"queued to resolved", JobStatusQueued, JobStatusResolved, true},
		{"queued to failed", JobStatusQueued, JobStatusFailed, true},
		{"resolving to resolved", JobStatusResolving, JobStatusResolved, true},
		{"resolving to failed", JobStatusResolving, JobStatusFailed, true},
		{"resolving to queued reverts", JobStatusResolving, JobStatusQueued, false},
		{"resolved is terminal", JobStatusResolved, JobStatusFailed, false},
		{"failed is terminal", JobStatusFailed, JobStatusResolved, false},
		{"resolved cannot repeat", JobStatusResolved, JobStatusResolved, false},
		{"unknown status", JobStatus("bogus"), JobStatusResolved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewJobRecord(t *testing.T) {
	now := time.Now()
	rec := NewJobRecord("@someone", "user@example.com", now)

	require.NoError(t, rec.Validate())
	assert.Equal(t, JobStatusQueued, rec.Status)
	assert.Equal(t, "@someone", rec.ChannelInput)
	assert.Equal(t, "user@example.com", rec.Email)
	assert.True(t, strings.HasPrefix(rec.JobID, "job_"))
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestNewJobIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 100 {
		id := NewJobID(now)
		require.False(t, seen[id], "duplicate job ID %s", id)
		seen[id] = true
	}
}

func TestMarkResolvedLifecycle(t *testing.T) {
	now := time.Now()
	rec := NewJobRecord("@someone", "user@example.com", now)

	require.NoError(t, rec.MarkResolving(now.Add(time.Second)))
	assert.Equal(t, JobStatusResolving, rec.Status)
	assert.Equal(t, now, rec.CreatedAt, "createdAt is immutable")

	require.NoError(t, rec.MarkResolved("UC123", "Someone", now.Add(2*time.Second)))
	assert.Equal(t, JobStatusResolved, rec.Status)
	assert.Equal(t, "UC123", rec.ChannelID)
	assert.Equal(t, "Someone", rec.ChannelName)
	require.NoError(t, rec.Validate())

	// Terminal records reject further mutation.
	err := rec.MarkFailed("nope", now.Add(3*time.Second))
	require.ErrorIs(t, err, ErrTerminalState)
	assert.Equal(t, JobStatusResolved, rec.Status)
}

func TestMarkFailedLifecycle(t *testing.T) {
	now := time.Now()
	rec := NewJobRecord("@missing", "user@example.com", now)

	require.NoError(t, rec.MarkResolving(now))
	require.NoError(t, rec.MarkFailed("channel not found", now))
	assert.Equal(t, JobStatusFailed, rec.Status)
	assert.Equal(t, "channel not found", rec.Error)
	assert.Empty(t, rec.ChannelID)
	require.NoError(t, rec.Validate())

	require.ErrorIs(t, rec.MarkResolving(now), ErrTerminalState)
}

func TestMarkFailedDefaultsReason(t *testing.T) {
	rec := NewJobRecord("@x", "user@example.com", time.Now())
	require.NoError(t, rec.MarkFailed("  ", time.Now()))
	assert.Equal(t, "resolution failed", rec.Error)
}

func TestMarkResolvedRequiresChannelID(t *testing.T) {
	rec := NewJobRecord("@x", "user@example.com", time.Now())
	require.Error(t, rec.MarkResolved("", "name", time.Now()))
	assert.Equal(t, JobStatusQueued, rec.Status, "failed transition must not mutate status")
}

func TestValidateInvariants(t *testing.T) {
	now := time.Now()

	t.Run("channel identity on non-resolved record", func(t *testing.T) {
		rec := NewJobRecord("@x", "a@b.com", now)
		rec.ChannelID = "UC123"
		require.Error(t, rec.Validate())
	})

	t.Run("error without failed status", func(t *testing.T) {
		rec := NewJobRecord("@x", "a@b.com", now)
		rec.Error = "boom"
		require.Error(t, rec.Validate())
	})

	t.Run("failed without error", func(t *testing.T) {
		rec := NewJobRecord("@x", "a@b.com", now)
		rec.Status = JobStatusFailed
		require.Error(t, rec.Validate())
	})
}

func TestJobSubmittedRoutable(t *testing.T) {
	evt := JobSubmitted{JobID: "job_1", Channel: "@x", Email: "a@b.com"}
	assert.True(t, evt.Routable())

	assert.False(t, (&JobSubmitted{Channel: "@x", Email: "a@b.com"}).Routable())
	assert.False(t, (&JobSubmitted{JobID: "job_1", Channel: "@x"}).Routable())
}
