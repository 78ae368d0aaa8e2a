// Package data implements the persistence repositories backed by the
// optional archive database.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamnotify/channel-resolver/internal/core"
	"github.com/streamnotify/channel-resolver/internal/data/pgxutil"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	apperrors "github.com/streamnotify/channel-resolver/internal/errors"
)

// ArchiveRepo persists terminal job outcomes to PostgreSQL. Rows are
// insert-only: the live record in the TTL store stays authoritative while
// it exists, the archive only answers "what happened" after expiry.
type ArchiveRepo struct {
	DB *sql.DB
}

// NewArchiveRepo creates an ArchiveRepo with the given database connection.
func NewArchiveRepo(db *sql.DB) *ArchiveRepo {
	return &ArchiveRepo{DB: db}
}

var _ core.ArchiveRepository = (*ArchiveRepo)(nil)

// RecordOutcome inserts the terminal outcome for a job. Re-archiving the
// same job is a no-op, so redelivered events never produce duplicate rows.
func (r *ArchiveRepo) RecordOutcome(ctx context.Context, rec model.JobRecord) error {
	if !rec.Status.Terminal() {
		return apperrors.Validation("only terminal outcomes are archived")
	}
	if err := rec.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job record")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO job_outcomes
				(job_id, channel_input, email, status, channel_id, channel_name, error, submitted_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (job_id) DO NOTHING
		`,
			rec.JobID,
			rec.ChannelInput,
			rec.Email,
			string(rec.Status),
			nullable(rec.ChannelID),
			nullable(rec.ChannelName),
			nullable(rec.Error),
			rec.CreatedAt.UTC(),
			rec.UpdatedAt.UTC(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("archive job outcome: %w", apperrors.MapDBError(err))
	}
	return nil
}

// GetOutcome returns the archived outcome for a job ID.
func (r *ArchiveRepo) GetOutcome(ctx context.Context, jobID string) (model.JobRecord, error) {
	var out model.JobRecord
	var channelID, channelName, failure sql.NullString

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT job_id, channel_input, email, status, channel_id, channel_name, error, submitted_at, completed_at
			FROM job_outcomes
			WHERE job_id = $1
		`, jobID)
		return row.Scan(
			&out.JobID,
			&out.ChannelInput,
			&out.Email,
			&out.Status,
			&channelID,
			&channelName,
			&failure,
			&out.CreatedAt,
			&out.UpdatedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.JobRecord{}, core.ErrRecordNotFound
		}
		return model.JobRecord{}, fmt.Errorf("get job outcome: %w", apperrors.MapDBError(err))
	}

	out.ChannelID = channelID.String
	out.ChannelName = channelName.String
	out.Error = failure.String
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
