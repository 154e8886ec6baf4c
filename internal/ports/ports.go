package ports

import (
	"context"
	"time"

	"CivicScanner/internal/domain"
)

// MentionSource pulls mentions and media from the external source API.
type MentionSource interface {
	ResolveAccountID(ctx context.Context, handle string) (string, error)
	FetchMentions(ctx context.Context, accountID, sinceID string, maxResults int) (domain.MentionBatch, error)
	FetchMention(ctx context.Context, id string) (domain.RawMention, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// ReplyPoster posts acknowledgement replies. Requires write credentials
// separate from the read-only fetch credentials.
type ReplyPoster interface {
	PostReply(ctx context.Context, inReplyTo, authorHandle string) (string, error)
}

// Classifier decides whether a candidate reports a civic problem and which
// handlers should look at it. Implementations must degrade to the default
// classification instead of failing the pipeline.
type Classifier interface {
	Classify(ctx context.Context, title, description, locationHint string) (domain.Classification, error)
}

// IssueStore persists created issues.
type IssueStore interface {
	Create(ctx context.Context, issue domain.Issue) error
}

// AuditStore is the create-only processed-mentions log, unique on mention
// id, queried for deduplication.
type AuditStore interface {
	Exists(ctx context.Context, mentionID string) (bool, error)
	Create(ctx context.Context, record domain.ProcessedMention) error
	Summary(ctx context.Context) (domain.AuditSummary, error)
}

// PollStateStore owns the durable cursor/statistics singleton.
type PollStateStore interface {
	Read(ctx context.Context) (domain.PollState, error)
	Write(ctx context.Context, lastMentionID string, delta domain.PollDelta) error
	RecordError(ctx context.Context, message string) error
}

// CycleRunner executes one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (domain.CycleStats, error)
}

// Scheduler drives the recurring job. Implementations must guarantee at
// most one concurrent execution; overlapping ticks are dropped.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
	Running() bool
	NextRun() time.Time
}
