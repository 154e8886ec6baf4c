package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

// IssueRepository persists synthesized issues into Postgres.
type IssueRepository struct {
	db *sql.DB
}

var _ ports.IssueStore = (*IssueRepository)(nil)

// NewIssueRepository wires a sql.DB implementation.
func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts one issue row.
func (r *IssueRepository) Create(ctx context.Context, issue domain.Issue) error {
	query, args, err := psql.Insert("issues").
		Columns(
			"id", "title", "description", "category", "sub_category",
			"reporter_name", "photos",
			"latitude", "longitude", "area", "city", "location_status",
			"suggested_handlers", "source", "mention_id", "mention_url",
			"author_handle", "author_name", "hashtags", "media_urls",
			"retweets", "likes", "replies", "mention_created_at", "created_at",
		).
		Values(
			issue.ID, issue.Title, issue.Description, issue.Category, issue.SubCategory,
			issue.ReporterName, pq.StringArray(issue.Photos),
			issue.Location.Latitude, issue.Location.Longitude, issue.Location.Area,
			issue.Location.City, string(issue.Location.Status),
			pq.StringArray(issue.SuggestedHandlers), issue.Source, issue.MentionID, issue.MentionURL,
			issue.AuthorHandle, issue.AuthorName, pq.StringArray(issue.Hashtags), pq.StringArray(issue.MediaURLs),
			issue.Retweets, issue.Likes, issue.Replies, issue.MentionCreatedAt, issue.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert issue: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert issue %s: %w", issue.ID, err)
	}
	return nil
}
