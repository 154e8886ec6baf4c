package domain

import "time"

// SourceTwitter marks issues synthesized from mentions.
const SourceTwitter = "twitter"

// LocationStatus tells whether an issue carries trusted coordinates or a
// placeholder centroid awaiting manual geocoding.
type LocationStatus string

const (
	LocationResolved LocationStatus = "resolved"
	LocationPending  LocationStatus = "pending"
)

// IssueLocation is the location block attached to a created issue.
type IssueLocation struct {
	Latitude  float64
	Longitude float64
	Area      string
	City      string
	Status    LocationStatus
}

// Issue is the downstream artifact handed to the issue store. Ownership of
// the full issue lifecycle lives in the CRUD subsystem; the pipeline only
// creates them, with provenance recording where they came from.
type Issue struct {
	ID                string
	Title             string
	Description       string
	Category          string
	SubCategory       string
	ReporterName      string
	Photos            []string
	Location          IssueLocation
	SuggestedHandlers []string

	Source           string
	MentionID        string
	MentionURL       string
	AuthorHandle     string
	AuthorName       string
	Hashtags         []string
	MediaURLs        []string
	Retweets         int
	Likes            int
	Replies          int
	MentionCreatedAt time.Time

	CreatedAt time.Time
}

// Classification is the collaborator's verdict on one candidate.
type Classification struct {
	Civic             bool
	Category          string
	SubCategory       string
	SuggestedHandlers []string
	Confidence        float64
}

// DefaultClassification is the degraded result used when the classifier is
// unavailable or returns garbage. The pipeline treats it as valid input.
func DefaultClassification() Classification {
	return Classification{Civic: true, Category: "general", Confidence: 0.5}
}
