package twitter

import (
	"time"

	"CivicScanner/internal/domain"
)

// Wire payloads for the mentions API. Every field is optional on the wire;
// decoding fails closed to zero values rather than erroring.

type mentionEnvelope struct {
	Data     []tweetPayload   `json:"data"`
	Includes envelopeIncludes `json:"includes"`
	Meta     struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type envelopeIncludes struct {
	Users  []userPayload  `json:"users"`
	Media  []mediaPayload `json:"media"`
	Places []placePayload `json:"places"`
}

type tweetPayload struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
	Geo       *struct {
		PlaceID     string `json:"place_id"`
		Coordinates *struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"coordinates"`
	} `json:"geo"`
	Entities *struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
	} `json:"entities"`
	Attachments *struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
	PublicMetrics *struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
}

type userPayload struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

type mediaPayload struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

type placePayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

func (e mentionEnvelope) toBatch() domain.MentionBatch {
	places := e.Includes.placeNames()

	batch := domain.MentionBatch{
		Mentions: make([]domain.RawMention, 0, len(e.Data)),
		Authors:  make(map[string]domain.Author, len(e.Includes.Users)),
		Media:    make(map[string]domain.Media, len(e.Includes.Media)),
		NewestID: e.Meta.NewestID,
	}

	for _, u := range e.Includes.Users {
		batch.Authors[u.ID] = domain.Author{
			ID:              u.ID,
			Username:        u.Username,
			Name:            u.Name,
			ProfileImageURL: u.ProfileImageURL,
		}
	}
	for _, m := range e.Includes.Media {
		batch.Media[m.MediaKey] = domain.Media{
			Key:             m.MediaKey,
			Type:            m.Type,
			URL:             m.URL,
			PreviewImageURL: m.PreviewImageURL,
		}
	}
	for _, t := range e.Data {
		batch.Mentions = append(batch.Mentions, t.toMention(places))
	}
	return batch
}

func (i envelopeIncludes) placeNames() map[string]string {
	if len(i.Places) == 0 {
		return nil
	}
	names := make(map[string]string, len(i.Places))
	for _, p := range i.Places {
		name := p.FullName
		if name == "" {
			name = p.Name
		}
		names[p.ID] = name
	}
	return names
}

func (t tweetPayload) toMention(places map[string]string) domain.RawMention {
	mention := domain.RawMention{
		ID:       t.ID,
		AuthorID: t.AuthorID,
		Text:     t.Text,
	}

	if ts, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
		mention.CreatedAt = ts
	}
	if t.Entities != nil {
		for _, h := range t.Entities.Hashtags {
			if h.Tag != "" {
				mention.Hashtags = append(mention.Hashtags, h.Tag)
			}
		}
	}
	if t.Attachments != nil {
		mention.MediaKeys = append(mention.MediaKeys, t.Attachments.MediaKeys...)
	}
	if t.Geo != nil {
		geo := &domain.Geo{PlaceID: t.Geo.PlaceID, PlaceName: places[t.Geo.PlaceID]}
		if t.Geo.Coordinates != nil {
			geo.Coordinates = t.Geo.Coordinates.Coordinates
		}
		mention.Geo = geo
	}
	if t.PublicMetrics != nil {
		mention.Metrics = domain.PublicMetrics{
			Retweets: t.PublicMetrics.RetweetCount,
			Likes:    t.PublicMetrics.LikeCount,
			Replies:  t.PublicMetrics.ReplyCount,
		}
	}
	return mention
}
