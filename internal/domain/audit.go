package domain

import "time"

// MentionStatus is the audited outcome of one mention.
type MentionStatus string

const (
	StatusProcessed MentionStatus = "processed"
	StatusSkipped   MentionStatus = "skipped"
	StatusFailed    MentionStatus = "failed"
)

// Skip reasons recorded on audit records.
const (
	ReasonNotCivic = "not_civic_issue"
)

// ProcessedMention is the durable, append-only audit record proving a
// mention was considered. Its mention-id uniqueness is the pipeline's sole
// concurrency-correctness guarantee.
type ProcessedMention struct {
	ID           string
	MentionID    string
	IssueID      string
	AuthorID     string
	AuthorHandle string
	Text         string
	Status       MentionStatus
	Reason       string
	ReplyID      string
	CreatedAt    time.Time
}

// ReporterCount is one row of the top-reporters leaderboard.
type ReporterCount struct {
	Handle string
	Count  int64
}

// AuditSummary aggregates the audit store for the operator dashboard.
type AuditSummary struct {
	Processed    int64
	Skipped      int64
	Failed       int64
	TopReporters []ReporterCount
}

// PollState is the durable singleton cursor/statistics document. Read at
// cycle start, written additively at cycle end.
type PollState struct {
	LastMentionID  string
	LastRunAt      time.Time
	TotalProcessed int64
	TotalCreated   int64
	TotalSkipped   int64
	TotalFailed    int64
	LastError      string
	LastErrorAt    time.Time
}

// PollDelta is the additive counter update applied at cycle end.
type PollDelta struct {
	Processed int
	Created   int
	Skipped   int
	Failed    int
}

// CycleStats is the per-cycle result shape shared by the scheduled job and
// the manual trigger.
type CycleStats struct {
	Fetched           int `json:"tweets_fetched"`
	Created           int `json:"issues_created"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	Errors            int `json:"errors"`
	PendingLocation   int `json:"pending_location"`
}

// OutcomeKind tags the per-mention processing result.
type OutcomeKind int

const (
	OutcomeProcessed OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

// Outcome is the tagged result of processing a single mention. The cycle
// loop folds over outcomes instead of catching exceptions mid-flight.
type Outcome struct {
	Kind            OutcomeKind
	IssueID         string
	ReplyID         string
	PendingLocation bool
	Reason          string
	Err             error
}
