package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"CivicScanner/internal/config"
	"CivicScanner/internal/domain"
)

func newTestClient(baseURL string, withWriteCreds bool) *Client {
	cfg := config.TwitterConfig{
		BaseURL:     baseURL,
		BearerToken: "bearer-token",
	}
	if withWriteCreds {
		cfg.AccessToken = "access-token"
		cfg.AccessSecret = "access-secret"
	}
	return NewClient(cfg, "Thanks @%s!", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchMentionsDecodesEnvelope(t *testing.T) {
	t.Parallel()

	payload := `{
		"data": [{
			"id": "1850000000000000001",
			"text": "@CivicScannerIN pothole near Saket #Delhi",
			"author_id": "u1",
			"created_at": "2024-11-02T10:00:00Z",
			"entities": {"hashtags": [{"tag": "Delhi"}]},
			"attachments": {"media_keys": ["m1"]},
			"geo": {"place_id": "p1", "coordinates": {"type": "Point", "coordinates": [77.21, 28.61]}},
			"public_metrics": {"retweet_count": 3, "like_count": 10, "reply_count": 1}
		}],
		"includes": {
			"users": [{"id": "u1", "username": "citizen", "name": "A Citizen"}],
			"media": [{"media_key": "m1", "type": "photo", "url": "https://pbs.twimg.com/a.jpg"}],
			"places": [{"id": "p1", "name": "Saket", "full_name": "Saket, New Delhi"}]
		},
		"meta": {"newest_id": "1850000000000000001", "result_count": 1}
	}`

	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer bearer-token" {
			t.Errorf("unexpected auth header: %s", got)
		}
		gotQuery.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, payload)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	batch, err := client.FetchMentions(context.Background(), "acct-1", "1840", 250)
	if err != nil {
		t.Fatalf("FetchMentions returned error: %v", err)
	}

	query := gotQuery.Load().(url.Values)
	if got := query.Get("since_id"); got != "1840" {
		t.Fatalf("expected since_id=1840, got %q", got)
	}
	if got := query.Get("max_results"); got != "100" {
		t.Fatalf("expected max_results clamped to 100, got %q", got)
	}

	if len(batch.Mentions) != 1 {
		t.Fatalf("expected 1 mention, got %d", len(batch.Mentions))
	}
	mention := batch.Mentions[0]
	if mention.ID != "1850000000000000001" {
		t.Fatalf("unexpected id: %s", mention.ID)
	}
	if len(mention.Hashtags) != 1 || mention.Hashtags[0] != "Delhi" {
		t.Fatalf("unexpected hashtags: %v", mention.Hashtags)
	}
	if mention.Geo == nil || mention.Geo.PlaceName != "Saket, New Delhi" {
		t.Fatalf("place name not resolved: %+v", mention.Geo)
	}
	if len(mention.Geo.Coordinates) != 2 || mention.Geo.Coordinates[0] != 77.21 {
		t.Fatalf("unexpected coordinates: %v", mention.Geo.Coordinates)
	}
	if mention.Metrics.Likes != 10 {
		t.Fatalf("unexpected likes: %d", mention.Metrics.Likes)
	}
	if mention.CreatedAt.IsZero() {
		t.Fatal("created_at not parsed")
	}

	author, ok := batch.Authors["u1"]
	if !ok || author.Username != "citizen" {
		t.Fatalf("author not expanded: %+v", batch.Authors)
	}
	media, ok := batch.Media["m1"]
	if !ok || media.URL != "https://pbs.twimg.com/a.jpg" {
		t.Fatalf("media not expanded: %+v", batch.Media)
	}
	if batch.NewestID != "1850000000000000001" {
		t.Fatalf("unexpected newest id: %s", batch.NewestID)
	}
}

func TestFetchMentionsStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, func(err error) bool { return errors.Is(err, domain.ErrRateLimited) }},
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, domain.ErrNotFound) }},
		{"server error", http.StatusInternalServerError, func(err error) bool {
			var te *domain.TransportError
			return errors.As(err, &te)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL, false)
			_, err := client.FetchMentions(context.Background(), "acct-1", "", 50)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFetchMention(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/1850" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"data": {"id": "1850", "text": "water leak near Dwarka", "author_id": "u2", "created_at": "2024-11-02T11:00:00Z"},
			"includes": {}
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	mention, err := client.FetchMention(context.Background(), "1850")
	if err != nil {
		t.Fatalf("FetchMention returned error: %v", err)
	}
	if mention.ID != "1850" || mention.AuthorID != "u2" {
		t.Fatalf("unexpected mention: %+v", mention)
	}
}

func TestFetchMentionMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.FetchMention(context.Background(), "1850")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveAccountID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/by/username/CivicScannerIN" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"data": {"id": "acct-42", "username": "CivicScannerIN"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	id, err := client.ResolveAccountID(context.Background(), "CivicScannerIN")
	if err != nil {
		t.Fatalf("ResolveAccountID returned error: %v", err)
	}
	if id != "acct-42" {
		t.Fatalf("unexpected id: %s", id)
	}
}

func TestResolveAccountIDMissingUser(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.ResolveAccountID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostReplyWithoutCredentials(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://unused.invalid", false)
	_, err := client.PostReply(context.Background(), "123", "citizen")
	if !errors.Is(err, domain.ErrWriteDisabled) {
		t.Fatalf("expected write disabled, got %v", err)
	}
}

func TestPostReply(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tweets" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyTo string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "Thanks @citizen!" {
			t.Errorf("unexpected text: %s", body.Text)
		}
		if body.Reply.InReplyTo != "123" {
			t.Errorf("unexpected in_reply_to: %s", body.Reply.InReplyTo)
		}
		io.WriteString(w, `{"data": {"id": "456"}}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	id, err := client.PostReply(context.Background(), "123", "citizen")
	if err != nil {
		t.Fatalf("PostReply returned error: %v", err)
	}
	if id != "456" {
		t.Fatalf("unexpected reply id: %s", id)
	}
}

func TestDownloadMediaRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "image-bytes")
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	data, err := client.DownloadMedia(context.Background(), server.URL+"/media/a.jpg")
	if err != nil {
		t.Fatalf("DownloadMedia returned error: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected payload: %q", data)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDownloadMediaNotFoundIsPermanent(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, false)
	_, err := client.DownloadMedia(context.Background(), server.URL+"/media/gone.jpg")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}
