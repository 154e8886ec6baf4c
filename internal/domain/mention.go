package domain

import "time"

// Point is a latitude/longitude pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Geo carries the raw geo block of a mention. Coordinates keep the
// provider's (longitude, latitude) ordering; the parser converts them.
type Geo struct {
	Coordinates []float64
	PlaceID     string
	PlaceName   string
}

// PublicMetrics holds engagement counters attached to a mention.
type PublicMetrics struct {
	Retweets int
	Likes    int
	Replies  int
}

// RawMention is one post referencing the monitored account, exactly as the
// source API reported it. Immutable; owned transiently for one poll cycle.
type RawMention struct {
	ID        string
	AuthorID  string
	Text      string
	CreatedAt time.Time
	MediaKeys []string
	Hashtags  []string
	Geo       *Geo
	Metrics   PublicMetrics
}

// Author is an expanded user record from the fetch envelope.
type Author struct {
	ID              string
	Username        string
	Name            string
	ProfileImageURL string
}

// Media is an expanded media record from the fetch envelope.
type Media struct {
	Key             string
	Type            string
	URL             string
	PreviewImageURL string
}

// MentionBatch is the result of one paginated mentions fetch: the mentions
// plus lookup maps for the expanded author and media objects.
type MentionBatch struct {
	Mentions []RawMention
	Authors  map[string]Author
	Media    map[string]Media
	NewestID string
}

// LocationConfidence ranks how trustworthy an extracted location is.
type LocationConfidence string

const (
	ConfidenceHigh   LocationConfidence = "high"
	ConfidenceMedium LocationConfidence = "medium"
	ConfidenceLow    LocationConfidence = "low"
	ConfidenceNone   LocationConfidence = "none"
)

// ParsedMention is the ephemeral candidate derived from one raw mention.
// It is consumed immediately by the orchestrator and never persisted.
type ParsedMention struct {
	Title       string
	Description string
	Hashtags    []string
	MediaURLs   []string
	Location    string
	City        string
	Coordinates *Point
	HasGeotag   bool
	Confidence  LocationConfidence
}

// MentionIDLess orders mention ids. The source API hands out numeric
// strings of growing length, so a plain string compare would regress the
// cursor whenever ids cross a digit boundary; compare by length first.
func MentionIDLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
