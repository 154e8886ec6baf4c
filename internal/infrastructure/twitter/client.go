package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"CivicScanner/internal/config"
	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"

	minResults = 10
	maxResults = 100
)

// Client wraps the mentions API. The bearer token covers all read calls;
// the access token pair is required only for posting replies.
type Client struct {
	baseURL       string
	bearerToken   string
	accessToken   string
	accessSecret  string
	replyTemplate string
	api           *http.Client
	media         *http.Client
	logger        *slog.Logger
}

var _ ports.MentionSource = (*Client)(nil)
var _ ports.ReplyPoster = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.TwitterConfig, replyTemplate string, logger *slog.Logger) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL:       base,
		bearerToken:   cfg.BearerToken,
		accessToken:   cfg.AccessToken,
		accessSecret:  cfg.AccessSecret,
		replyTemplate: replyTemplate,
		api:           &http.Client{Timeout: 30 * time.Second},
		media:         &http.Client{Timeout: 60 * time.Second},
		logger:        logger,
	}
}

// ResolveAccountID looks up the numeric account id for a handle. A missing
// user is a normal outcome reported as domain.ErrNotFound.
func (c *Client) ResolveAccountID(ctx context.Context, handle string) (string, error) {
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	endpoint := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(handle))
	if err := c.getJSON(ctx, "resolve account", endpoint, &envelope); err != nil {
		return "", fmt.Errorf("user @%s: %w", handle, err)
	}
	if envelope.Data.ID == "" {
		return "", fmt.Errorf("user @%s: %w", handle, domain.ErrNotFound)
	}
	return envelope.Data.ID, nil
}

// FetchMentions pulls mentions newer than sinceID, expanding authors and
// media so the caller never needs follow-up lookups.
func (c *Client) FetchMentions(ctx context.Context, accountID, sinceID string, limit int) (domain.MentionBatch, error) {
	if limit < minResults {
		limit = minResults
	}
	if limit > maxResults {
		limit = maxResults
	}

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(limit))
	query.Set("tweet.fields", "created_at,geo,entities,public_metrics,attachments,author_id")
	query.Set("expansions", "author_id,attachments.media_keys,geo.place_id")
	query.Set("user.fields", "name,username,profile_image_url,verified")
	query.Set("media.fields", "url,preview_image_url,type,width,height")
	query.Set("place.fields", "geo,name,full_name")
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	var envelope mentionEnvelope
	endpoint := fmt.Sprintf("%s/users/%s/mentions?%s", c.baseURL, url.PathEscape(accountID), query.Encode())
	if err := c.getJSON(ctx, "fetch mentions", endpoint, &envelope); err != nil {
		return domain.MentionBatch{}, err
	}

	batch := envelope.toBatch()
	c.logger.Debug("fetched mentions", "count", len(batch.Mentions), "since_id", sinceID)
	return batch, nil
}

// FetchMention retrieves a single mention by id.
func (c *Client) FetchMention(ctx context.Context, id string) (domain.RawMention, error) {
	var envelope struct {
		Data     *tweetPayload    `json:"data"`
		Includes envelopeIncludes `json:"includes"`
	}

	query := url.Values{}
	query.Set("tweet.fields", "created_at,geo,entities,public_metrics,attachments,author_id")
	query.Set("expansions", "author_id,attachments.media_keys,geo.place_id")
	query.Set("place.fields", "geo,name,full_name")

	endpoint := fmt.Sprintf("%s/tweets/%s?%s", c.baseURL, url.PathEscape(id), query.Encode())
	if err := c.getJSON(ctx, "fetch mention", endpoint, &envelope); err != nil {
		return domain.RawMention{}, err
	}
	if envelope.Data == nil {
		return domain.RawMention{}, fmt.Errorf("mention %s: %w", id, domain.ErrNotFound)
	}
	return envelope.Data.toMention(envelope.Includes.placeNames()), nil
}

// DownloadMedia fetches raw media bytes, retrying transient failures with
// capped exponential backoff.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	var payload []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.media.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(domain.ErrNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		payload, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newMediaBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &domain.TransportError{Op: "download media", Err: err}
	}
	return payload, nil
}

func newMediaBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// PostReply creates a threaded acknowledgement reply. Without write
// credentials it reports domain.ErrWriteDisabled so callers can treat
// replying as an optional capability.
func (c *Client) PostReply(ctx context.Context, inReplyTo, authorHandle string) (string, error) {
	if c.accessToken == "" || c.accessSecret == "" {
		return "", domain.ErrWriteDisabled
	}

	body, err := json.Marshal(map[string]any{
		"text": fmt.Sprintf(c.replyTemplate, authorHandle),
		"reply": map[string]string{
			"in_reply_to_tweet_id": inReplyTo,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return "", &domain.TransportError{Op: "post reply", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("post reply: %w", domain.ErrRateLimited)
	case resp.StatusCode >= http.StatusBadRequest:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &domain.TransportError{
			Op:  "post reply",
			Err: fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", &domain.TransportError{Op: "post reply", Err: fmt.Errorf("decode response: %w", err)}
	}
	return envelope.Data.ID, nil
}

// getJSON performs an authenticated GET and maps status codes onto the
// shared error taxonomy: 404 is a normal not-found outcome, 429 means
// retry later, anything else unexpected is a transport failure.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.api.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("source API rate limited", "op", op)
		return domain.ErrRateLimited
	case resp.StatusCode >= http.StatusBadRequest:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &domain.TransportError{
			Op:  op,
			Err: fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
