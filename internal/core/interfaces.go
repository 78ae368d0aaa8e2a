// Package core defines the contracts between the service layer and the
// adapters (ports in hexagonal architecture). Service implementations
// depend on these interfaces, not concrete implementations.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/streamnotify/channel-resolver/internal/domain/model"
)

// ErrRecordNotFound is returned by JobStore when no record exists for a key.
// A missing record is equivalent to an expired or unknown job; callers must
// never fabricate a result for it.
var ErrRecordNotFound = errors.New("job record not found")

// ErrChannelNotFound is returned by ChannelDirectory when neither the
// primary nor the fallback query produced a candidate. It is a normal
// outcome, not a transport fault.
var ErrChannelNotFound = errors.New("channel not found in directory")

// JobStore is the durable, TTL-keyed job record store.
//
// Writers always replace the full record they just read; the store needs no
// partial-field transactions. Records expire on their own and are never
// deleted explicitly.
type JobStore interface {
	// Create writes a fresh record and starts its expiration window.
	Create(ctx context.Context, rec model.JobRecord) error

	// Update replaces an existing record, preserving the remaining TTL so
	// status changes never extend a job's lifetime.
	Update(ctx context.Context, rec model.JobRecord) error

	// Get returns the record for jobID or ErrRecordNotFound.
	Get(ctx context.Context, jobID string) (model.JobRecord, error)

	// StuckResolving lists records sitting in the resolving state since
	// before the cutoff, up to limit. Used by the sweeper.
	StuckResolving(ctx context.Context, cutoff time.Time, limit int) ([]model.JobRecord, error)
}

// EventBus carries the system's events. Delivery is at-least-once; handlers
// must be idempotent-by-inspection.
type EventBus interface {
	EventPublisher

	// Subscribe returns a channel of raw payloads for topic. The channel is
	// closed when ctx is done. Payload decoding and validation happen at
	// the handler boundary.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// EventPublisher is the publish-only face of the bus, used by components
// that never consume.
type EventPublisher interface {
	// Publish marshals payload and delivers it to topic subscribers.
	Publish(ctx context.Context, topic string, payload any) error
}

// Resolution is a successful directory lookup result.
type Resolution struct {
	ChannelID   string
	ChannelName string
}

// ChannelDirectory resolves a raw channel identifier against the external
// directory search service.
type ChannelDirectory interface {
	// Resolve returns the first candidate for channelInput, trying the
	// bare handle first and the raw input as a fallback. Returns
	// ErrChannelNotFound when both queries come up empty; transport errors
	// propagate unretried.
	Resolve(ctx context.Context, channelInput string) (Resolution, error)
}

// ArchiveRepository records terminal job outcomes for audit. Archive
// failures never alter a job's outcome.
type ArchiveRepository interface {
	RecordOutcome(ctx context.Context, rec model.JobRecord) error
}
