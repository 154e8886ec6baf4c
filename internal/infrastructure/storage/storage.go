package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// psql builds statements with Postgres-style placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		sub_category TEXT NOT NULL DEFAULT '',
		reporter_name TEXT NOT NULL DEFAULT '',
		photos TEXT[] NOT NULL DEFAULT '{}',
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		area TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		location_status TEXT NOT NULL,
		suggested_handlers TEXT[] NOT NULL DEFAULT '{}',
		source TEXT NOT NULL,
		mention_id TEXT NOT NULL DEFAULT '',
		mention_url TEXT NOT NULL DEFAULT '',
		author_handle TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		hashtags TEXT[] NOT NULL DEFAULT '{}',
		media_urls TEXT[] NOT NULL DEFAULT '{}',
		retweets INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		mention_created_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processed_mentions (
		id TEXT PRIMARY KEY,
		mention_id TEXT NOT NULL,
		issue_id TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL DEFAULT '',
		author_handle TEXT NOT NULL DEFAULT '',
		mention_text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		reply_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS processed_mentions_mention_id_key
		ON processed_mentions (mention_id)`,
	`CREATE TABLE IF NOT EXISTS twitter_poll_state (
		id TEXT PRIMARY KEY,
		last_mention_id TEXT NOT NULL DEFAULT '',
		last_run_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		total_processed BIGINT NOT NULL DEFAULT 0,
		total_created BIGINT NOT NULL DEFAULT 0,
		total_skipped BIGINT NOT NULL DEFAULT 0,
		total_failed BIGINT NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		last_error_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the pipeline's tables and the mention-id uniqueness
// index that backs deduplication.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
