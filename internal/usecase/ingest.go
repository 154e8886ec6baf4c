package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"CivicScanner/internal/domain"
	"CivicScanner/internal/parser"
	"CivicScanner/internal/ports"
)

const (
	// DefaultConfidenceThreshold gates issue creation; classifications at
	// or above it create, below it skip.
	DefaultConfidenceThreshold = 0.6

	maxPhotos = 5
)

// OrchestratorDeps wires all collaborators into the ingestion pipeline.
type OrchestratorDeps struct {
	Source              ports.MentionSource
	Replies             ports.ReplyPoster
	Classifier          ports.Classifier
	Issues              ports.IssueStore
	Audit               ports.AuditStore
	State               ports.PollStateStore
	Logger              *slog.Logger
	AccountID           string
	AccountHandle       string
	MaxResults          int
	ConfidenceThreshold float64
}

// Orchestrator drives one poll cycle: fetch, dedupe, parse, classify,
// gate, persist, reply. Failures are isolated per mention so one bad item
// never aborts the batch.
type Orchestrator struct {
	source     ports.MentionSource
	replies    ports.ReplyPoster
	classifier ports.Classifier
	issues     ports.IssueStore
	audit      ports.AuditStore
	state      ports.PollStateStore
	logger     *slog.Logger

	accountID     string
	accountHandle string
	maxResults    int
	threshold     float64
}

var _ ports.CycleRunner = (*Orchestrator)(nil)

// NewOrchestrator constructs the pipeline component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	threshold := deps.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	limit := deps.MaxResults
	if limit <= 0 {
		limit = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:        deps.Source,
		replies:       deps.Replies,
		classifier:    deps.Classifier,
		issues:        deps.Issues,
		audit:         deps.Audit,
		state:         deps.State,
		logger:        logger,
		accountID:     deps.AccountID,
		accountHandle: deps.AccountHandle,
		maxResults:    limit,
		threshold:     threshold,
	}
}

// RunCycle executes one poll cycle and returns its statistics. A rate
// limit aborts the cycle with the cursor untouched; other transport
// failures abort after recording the error.
func (o *Orchestrator) RunCycle(ctx context.Context) (domain.CycleStats, error) {
	var stats domain.CycleStats

	accountID, err := o.resolveAccount(ctx)
	if err != nil {
		stats.Errors++
		o.recordError(ctx, err)
		return stats, err
	}

	state, err := o.state.Read(ctx)
	if err != nil {
		stats.Errors++
		return stats, fmt.Errorf("read poll state: %w", err)
	}

	o.logger.Info("polling mentions", "since_id", state.LastMentionID)
	batch, err := o.source.FetchMentions(ctx, accountID, state.LastMentionID, o.maxResults)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			o.logger.Warn("rate limited, deferring cycle")
			o.recordError(ctx, err)
			return stats, err
		}
		stats.Errors++
		o.recordError(ctx, err)
		return stats, fmt.Errorf("fetch mentions: %w", err)
	}

	if len(batch.Mentions) == 0 {
		o.logger.Debug("no new mentions")
		if err := o.state.Write(ctx, "", domain.PollDelta{}); err != nil {
			o.logger.Error("touch poll state", "error", err)
		}
		return stats, nil
	}

	stats.Fetched = len(batch.Mentions)

	// oldest first, so the cursor advances in the order mentions arrived
	mentions := append([]domain.RawMention(nil), batch.Mentions...)
	sort.Slice(mentions, func(i, j int) bool {
		return domain.MentionIDLess(mentions[i].ID, mentions[j].ID)
	})

	var delta domain.PollDelta
	maxSeen := state.LastMentionID

	for _, mention := range mentions {
		if domain.MentionIDLess(maxSeen, mention.ID) {
			maxSeen = mention.ID
		}

		seen, err := o.audit.Exists(ctx, mention.ID)
		if err != nil {
			// a broken dedup store means we cannot tell processed from
			// unprocessed; abort with the cursor untouched so every
			// mention is retried next cycle
			stats.Errors++
			o.recordError(ctx, err)
			return stats, fmt.Errorf("dedup lookup %s: %w", mention.ID, err)
		}
		if seen {
			stats.DuplicatesSkipped++
			o.logger.Debug("skipping duplicate mention", "mention_id", mention.ID)
			continue
		}

		outcome := o.processMention(ctx, mention, batch)
		delta.Processed++
		switch outcome.Kind {
		case domain.OutcomeProcessed:
			stats.Created++
			delta.Created++
			if outcome.PendingLocation {
				stats.PendingLocation++
			}
			o.logger.Info("issue created from mention", "mention_id", mention.ID, "issue_id", outcome.IssueID)
		case domain.OutcomeSkipped:
			delta.Skipped++
			o.logger.Info("mention skipped", "mention_id", mention.ID, "reason", outcome.Reason)
		case domain.OutcomeFailed:
			stats.Errors++
			delta.Failed++
			o.recordError(ctx, outcome.Err)
			o.logger.Error("mention processing failed", "mention_id", mention.ID, "error", outcome.Err)
		}
	}

	newCursor := ""
	if domain.MentionIDLess(state.LastMentionID, maxSeen) {
		newCursor = maxSeen
	}
	if err := o.state.Write(ctx, newCursor, delta); err != nil {
		o.logger.Error("write poll state", "error", err)
	}

	return stats, nil
}

// ProcessSingle ingests one mention by id, outside the poll cycle. The
// cursor is left untouched so the next scheduled cycle still sees
// everything after it.
func (o *Orchestrator) ProcessSingle(ctx context.Context, id string) (domain.Outcome, error) {
	seen, err := o.audit.Exists(ctx, id)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return domain.Outcome{Kind: domain.OutcomeSkipped, Reason: "already processed"}, nil
	}

	mention, err := o.source.FetchMention(ctx, id)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("fetch mention %s: %w", id, err)
	}

	outcome := o.processMention(ctx, mention, domain.MentionBatch{})
	delta := domain.PollDelta{Processed: 1}
	switch outcome.Kind {
	case domain.OutcomeProcessed:
		delta.Created = 1
	case domain.OutcomeSkipped:
		delta.Skipped = 1
	case domain.OutcomeFailed:
		delta.Failed = 1
		o.recordError(ctx, outcome.Err)
	}
	if err := o.state.Write(ctx, "", delta); err != nil {
		o.logger.Error("write poll state", "error", err)
	}
	return outcome, nil
}

// processMention handles one mention end to end and reports a tagged
// outcome; it never panics the batch.
func (o *Orchestrator) processMention(ctx context.Context, mention domain.RawMention, batch domain.MentionBatch) domain.Outcome {
	author := batch.Authors[mention.AuthorID]
	handle := author.Username
	if handle == "" {
		handle = "unknown"
	}

	media := make([]domain.Media, 0, len(mention.MediaKeys))
	for _, key := range mention.MediaKeys {
		if m, ok := batch.Media[key]; ok {
			media = append(media, m)
		}
	}

	parsed := parser.Parse(mention.Text, mention, author, media)

	classification, err := o.classifier.Classify(ctx, parsed.Title, parsed.Description, locationHint(parsed))
	if err != nil {
		o.logger.Warn("classification failed, falling back", "mention_id", mention.ID, "error", err)
		classification = domain.DefaultClassification()
	}
	if classification.Category == "" || classification.Category == "general" {
		if hint := parser.SuggestCategory(parsed.Description); hint != "" {
			classification.Category = hint
		}
	}

	if !classification.Civic {
		return o.skip(ctx, mention, handle, domain.ReasonNotCivic)
	}
	if classification.Confidence < o.threshold {
		reason := fmt.Sprintf("low_confidence (%.2f)", classification.Confidence)
		return o.skip(ctx, mention, handle, reason)
	}

	issue := o.buildIssue(mention, author, handle, parsed, classification)
	issue.Photos = o.downloadPhotos(ctx, mention.ID, parsed.MediaURLs)

	if err := o.issues.Create(ctx, issue); err != nil {
		return o.fail(ctx, mention, handle, fmt.Errorf("persist issue: %w", err))
	}

	replyID := ""
	if o.replies != nil {
		id, err := o.replies.PostReply(ctx, mention.ID, handle)
		switch {
		case err == nil:
			replyID = id
		case errors.Is(err, domain.ErrWriteDisabled):
			o.logger.Debug("replying disabled, skipping acknowledgement", "mention_id", mention.ID)
		default:
			// reply failure never rolls back issue creation
			o.logger.Warn("acknowledgement reply failed", "mention_id", mention.ID, "error", err)
		}
	}

	record := domain.ProcessedMention{
		ID:           uuid.NewString(),
		MentionID:    mention.ID,
		IssueID:      issue.ID,
		AuthorID:     mention.AuthorID,
		AuthorHandle: handle,
		Text:         mention.Text,
		Status:       domain.StatusProcessed,
		ReplyID:      replyID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.audit.Create(ctx, record); err != nil {
		return domain.Outcome{Kind: domain.OutcomeFailed, Err: fmt.Errorf("audit mention %s: %w", mention.ID, err)}
	}

	return domain.Outcome{
		Kind:            domain.OutcomeProcessed,
		IssueID:         issue.ID,
		ReplyID:         replyID,
		PendingLocation: issue.Location.Status == domain.LocationPending,
	}
}

func (o *Orchestrator) skip(ctx context.Context, mention domain.RawMention, handle, reason string) domain.Outcome {
	record := domain.ProcessedMention{
		ID:           uuid.NewString(),
		MentionID:    mention.ID,
		AuthorID:     mention.AuthorID,
		AuthorHandle: handle,
		Text:         mention.Text,
		Status:       domain.StatusSkipped,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.audit.Create(ctx, record); err != nil {
		return domain.Outcome{Kind: domain.OutcomeFailed, Err: fmt.Errorf("audit mention %s: %w", mention.ID, err)}
	}
	return domain.Outcome{Kind: domain.OutcomeSkipped, Reason: reason}
}

func (o *Orchestrator) fail(ctx context.Context, mention domain.RawMention, handle string, cause error) domain.Outcome {
	record := domain.ProcessedMention{
		ID:           uuid.NewString(),
		MentionID:    mention.ID,
		AuthorID:     mention.AuthorID,
		AuthorHandle: handle,
		Text:         mention.Text,
		Status:       domain.StatusFailed,
		Reason:       cause.Error(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := o.audit.Create(ctx, record); err != nil {
		o.logger.Error("audit write failed", "mention_id", mention.ID, "error", err)
	}
	return domain.Outcome{Kind: domain.OutcomeFailed, Err: cause}
}

// buildIssue assembles the issue record from the candidate and the
// classification. A candidate without any location evidence gets the
// default centroid and a pending location status instead of being dropped.
func (o *Orchestrator) buildIssue(mention domain.RawMention, author domain.Author, handle string, parsed domain.ParsedMention, cls domain.Classification) domain.Issue {
	location := domain.IssueLocation{
		Latitude:  parser.DefaultCity.Latitude,
		Longitude: parser.DefaultCity.Longitude,
		Area:      parsed.Location,
		City:      parsed.City,
		Status:    domain.LocationResolved,
	}
	if location.City == "" {
		location.City = parser.DefaultCity.Name
	}
	switch {
	case parsed.Coordinates != nil:
		location.Latitude = parsed.Coordinates.Latitude
		location.Longitude = parsed.Coordinates.Longitude
	case parsed.Confidence == domain.ConfidenceNone:
		location.Status = domain.LocationPending
		location.Area = "Location needed"
	}

	reporter := author.Name
	if reporter == "" {
		reporter = "@" + handle
	}

	createdAt := mention.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return domain.Issue{
		ID:                uuid.NewString(),
		Title:             parsed.Title,
		Description:       parsed.Description,
		Category:          cls.Category,
		SubCategory:       cls.SubCategory,
		ReporterName:      reporter,
		Location:          location,
		SuggestedHandlers: cls.SuggestedHandlers,
		Source:            domain.SourceTwitter,
		MentionID:         mention.ID,
		MentionURL:        fmt.Sprintf("https://twitter.com/%s/status/%s", handle, mention.ID),
		AuthorHandle:      handle,
		AuthorName:        author.Name,
		Hashtags:          parsed.Hashtags,
		MediaURLs:         parsed.MediaURLs,
		Retweets:          mention.Metrics.Retweets,
		Likes:             mention.Metrics.Likes,
		Replies:           mention.Metrics.Replies,
		MentionCreatedAt:  createdAt,
		CreatedAt:         time.Now().UTC(),
	}
}

// downloadPhotos fetches up to maxPhotos media items as data URLs. Each
// failure is logged and skipped; media never blocks issue creation.
func (o *Orchestrator) downloadPhotos(ctx context.Context, mentionID string, urls []string) []string {
	if len(urls) > maxPhotos {
		urls = urls[:maxPhotos]
	}

	photos := make([]string, 0, len(urls))
	for _, u := range urls {
		data, err := o.source.DownloadMedia(ctx, u)
		if err != nil {
			o.logger.Warn("media download failed", "mention_id", mentionID, "url", u, "error", err)
			continue
		}
		photos = append(photos, encodePhoto(u, data))
	}
	return photos
}

func encodePhoto(mediaURL string, data []byte) string {
	contentType := "image/jpeg"
	if strings.HasSuffix(strings.ToLower(mediaURL), ".png") {
		contentType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// resolveAccount returns the configured account id, looking it up by
// handle once and caching the answer.
func (o *Orchestrator) resolveAccount(ctx context.Context) (string, error) {
	if o.accountID != "" {
		return o.accountID, nil
	}
	if o.accountHandle == "" {
		return "", fmt.Errorf("no account id or handle configured")
	}
	id, err := o.source.ResolveAccountID(ctx, o.accountHandle)
	if err != nil {
		return "", fmt.Errorf("resolve @%s: %w", o.accountHandle, err)
	}
	o.logger.Info("resolved monitored account", "handle", o.accountHandle, "account_id", id)
	o.accountID = id
	return id, nil
}

func (o *Orchestrator) recordError(ctx context.Context, cause error) {
	if cause == nil {
		return
	}
	if err := o.state.RecordError(ctx, cause.Error()); err != nil {
		o.logger.Error("record poll error", "error", err)
	}
}

// Report aggregates durable state for the operator dashboard.
type Report struct {
	State   domain.PollState
	Summary domain.AuditSummary
}

// Stats returns the poll state and audit summary.
func (o *Orchestrator) Stats(ctx context.Context) (Report, error) {
	state, err := o.state.Read(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read poll state: %w", err)
	}
	summary, err := o.audit.Summary(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("audit summary: %w", err)
	}
	return Report{State: state, Summary: summary}, nil
}

func locationHint(parsed domain.ParsedMention) string {
	parts := make([]string, 0, 2)
	if parsed.Location != "" {
		parts = append(parts, parsed.Location)
	}
	if parsed.City != "" {
		parts = append(parts, parsed.City)
	}
	return strings.Join(parts, ", ")
}
