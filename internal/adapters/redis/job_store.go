// Package redis provides Redis-based adapters for the channel resolution system.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
)

// JobStore is a Redis-backed TTL-keyed job record store.
//
// Records are stored as JSON under "<prefix><jobId>". The expiration window
// starts at Create; Update keeps the remaining TTL so later status writes
// never extend a job's lifetime. Expired records simply vanish, which the
// rest of the system treats as "expired or unknown job".
type JobStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// JobStoreOptions configure a JobStore.
type JobStoreOptions struct {
	Client redis.UniversalClient // Required
	Prefix string                // Key prefix, default "job:"
	TTL    time.Duration         // Record expiration, default 24h
}

// NewJobStore creates a Redis-backed job store.
func NewJobStore(opts JobStoreOptions) (*JobStore, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "job:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &JobStore{
		client: opts.Client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

var _ core.JobStore = (*JobStore)(nil)

// Create writes a fresh record and starts its expiration window.
func (s *JobStore) Create(ctx context.Context, rec model.JobRecord) error {
	data, err := s.encode(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.JobID), data, s.ttl).Err()
}

// Update replaces an existing record while preserving the remaining TTL.
func (s *JobStore) Update(ctx context.Context, rec model.JobRecord) error {
	data, err := s.encode(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.JobID), data, redis.KeepTTL).Err()
}

// Get returns the record for jobID or core.ErrRecordNotFound.
func (s *JobStore) Get(ctx context.Context, jobID string) (model.JobRecord, error) {
	if jobID == "" {
		return model.JobRecord{}, core.ErrRecordNotFound
	}

	data, err := s.client.Get(ctx, s.key(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.JobRecord{}, core.ErrRecordNotFound
		}
		return model.JobRecord{}, fmt.Errorf("redis get: %w", err)
	}

	var rec model.JobRecord
	if unmarshalErr := json.Unmarshal([]byte(data), &rec); unmarshalErr != nil {
		return model.JobRecord{}, fmt.Errorf("unmarshal job record: %w", unmarshalErr)
	}

	return rec, nil
}

// StuckResolving scans the job keyspace for records stuck in the resolving
// state since before the cutoff. The scan is bounded by limit matches; a
// full keyspace pass ends the sweep regardless.
func (s *JobStore) StuckResolving(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]model.JobRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	var stuck []model.JobRecord
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		jobID := iter.Val()[len(s.prefix):]
		rec, err := s.Get(ctx, jobID)
		if err != nil {
			// The record can expire between SCAN and GET.
			if errors.Is(err, core.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("scan job %s: %w", jobID, err)
		}

		if rec.Status == model.JobStatusResolving && rec.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, rec)
			if len(stuck) >= limit {
				break
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan jobs: %w", err)
	}

	return stuck, nil
}

// scanCount is the per-iteration SCAN hint. Large enough to keep round
// trips down, small enough to avoid blocking the server.
const scanCount = 200

func (s *JobStore) key(jobID string) string {
	return s.prefix + jobID
}

func (s *JobStore) encode(rec model.JobRecord) ([]byte, error) {
	if rec.JobID == "" {
		return nil, errors.New("job ID cannot be empty")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job record: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal job record: %w", err)
	}
	return data, nil
}
