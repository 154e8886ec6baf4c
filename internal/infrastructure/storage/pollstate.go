package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

// pollStateID is the fixed key of the cursor singleton row.
const pollStateID = "twitter_poll"

// PollStateRepository owns the durable cursor/statistics singleton.
type PollStateRepository struct {
	db *sql.DB
}

var _ ports.PollStateStore = (*PollStateRepository)(nil)

// NewPollStateRepository wires a sql.DB implementation.
func NewPollStateRepository(db *sql.DB) *PollStateRepository {
	return &PollStateRepository{db: db}
}

// Read loads the singleton, creating a zero-valued row on first access.
func (r *PollStateRepository) Read(ctx context.Context) (domain.PollState, error) {
	query, args, err := psql.Select(
		"last_mention_id", "last_run_at",
		"total_processed", "total_created", "total_skipped", "total_failed",
		"last_error", "last_error_at",
	).
		From("twitter_poll_state").
		Where(sq.Eq{"id": pollStateID}).
		ToSql()
	if err != nil {
		return domain.PollState{}, fmt.Errorf("build poll state query: %w", err)
	}

	var state domain.PollState
	var lastErrorAt sql.NullTime
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&state.LastMentionID, &state.LastRunAt,
		&state.TotalProcessed, &state.TotalCreated, &state.TotalSkipped, &state.TotalFailed,
		&state.LastError, &lastErrorAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r.create(ctx)
	}
	if err != nil {
		return domain.PollState{}, fmt.Errorf("query poll state: %w", err)
	}
	if lastErrorAt.Valid {
		state.LastErrorAt = lastErrorAt.Time
	}
	return state, nil
}

func (r *PollStateRepository) create(ctx context.Context) (domain.PollState, error) {
	now := time.Now().UTC()
	query, args, err := psql.Insert("twitter_poll_state").
		Columns("id", "last_run_at").
		Values(pollStateID, now).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return domain.PollState{}, fmt.Errorf("build poll state insert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.PollState{}, fmt.Errorf("insert poll state: %w", err)
	}
	return domain.PollState{LastRunAt: now}, nil
}

// Write advances the cursor (when lastMentionID is non-empty), refreshes
// the run timestamp, and applies the counter deltas additively.
func (r *PollStateRepository) Write(ctx context.Context, lastMentionID string, delta domain.PollDelta) error {
	builder := psql.Update("twitter_poll_state").
		Set("last_run_at", time.Now().UTC()).
		Set("total_processed", sq.Expr("total_processed + ?", delta.Processed)).
		Set("total_created", sq.Expr("total_created + ?", delta.Created)).
		Set("total_skipped", sq.Expr("total_skipped + ?", delta.Skipped)).
		Set("total_failed", sq.Expr("total_failed + ?", delta.Failed)).
		Where(sq.Eq{"id": pollStateID})
	if lastMentionID != "" {
		builder = builder.Set("last_mention_id", lastMentionID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build poll state update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update poll state: %w", err)
	}
	return nil
}

// RecordError stores the last-error fields independently of the main
// write, so aborted cycles stay visible to operators.
func (r *PollStateRepository) RecordError(ctx context.Context, message string) error {
	query, args, err := psql.Insert("twitter_poll_state").
		Columns("id", "last_error", "last_error_at").
		Values(pollStateID, message, time.Now().UTC()).
		Suffix("ON CONFLICT (id) DO UPDATE SET last_error = EXCLUDED.last_error, last_error_at = EXCLUDED.last_error_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build error update: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record poll error: %w", err)
	}
	return nil
}
