package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

// AuditRepository is the append-only processed-mentions log. The unique
// index on mention_id is the pipeline's correctness backstop.
type AuditRepository struct {
	db *sql.DB
}

var _ ports.AuditStore = (*AuditRepository)(nil)

// NewAuditRepository wires a sql.DB implementation.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Exists reports whether a mention id already has an audit record.
func (r *AuditRepository) Exists(ctx context.Context, mentionID string) (bool, error) {
	query, args, err := psql.Select("1").
		From("processed_mentions").
		Where(sq.Eq{"mention_id": mentionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed mention %s: %w", mentionID, err)
	}
	return true, nil
}

// Create appends one audit record. Records are never mutated afterwards.
func (r *AuditRepository) Create(ctx context.Context, record domain.ProcessedMention) error {
	query, args, err := psql.Insert("processed_mentions").
		Columns(
			"id", "mention_id", "issue_id", "author_id", "author_handle",
			"mention_text", "status", "reason", "reply_id", "created_at",
		).
		Values(
			record.ID, record.MentionID, record.IssueID, record.AuthorID, record.AuthorHandle,
			record.Text, string(record.Status), record.Reason, record.ReplyID, record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit record: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit record for mention %s: %w", record.MentionID, err)
	}
	return nil
}

// Summary aggregates outcome counts and the top-reporter leaderboard for
// the operator dashboard.
func (r *AuditRepository) Summary(ctx context.Context) (domain.AuditSummary, error) {
	var summary domain.AuditSummary

	query, args, err := psql.Select("status", "COUNT(*)").
		From("processed_mentions").
		GroupBy("status").
		ToSql()
	if err != nil {
		return summary, fmt.Errorf("build summary query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return summary, fmt.Errorf("query outcome counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return summary, fmt.Errorf("scan outcome count: %w", err)
		}
		switch domain.MentionStatus(status) {
		case domain.StatusProcessed:
			summary.Processed = count
		case domain.StatusSkipped:
			summary.Skipped = count
		case domain.StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate outcome counts: %w", err)
	}

	reporters, err := r.topReporters(ctx)
	if err != nil {
		return summary, err
	}
	summary.TopReporters = reporters
	return summary, nil
}

func (r *AuditRepository) topReporters(ctx context.Context) ([]domain.ReporterCount, error) {
	query, args, err := psql.Select("author_handle", "COUNT(*) AS reports").
		From("processed_mentions").
		Where(sq.Eq{"status": string(domain.StatusProcessed)}).
		Where(sq.NotEq{"author_handle": ""}).
		GroupBy("author_handle").
		OrderBy("reports DESC").
		Limit(10).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top reporters query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top reporters: %w", err)
	}
	defer rows.Close()

	var reporters []domain.ReporterCount
	for rows.Next() {
		var rc domain.ReporterCount
		if err := rows.Scan(&rc.Handle, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan reporter: %w", err)
		}
		reporters = append(reporters, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reporters: %w", err)
	}
	return reporters, nil
}
