package parser

import (
	"regexp"
	"strings"

	"CivicScanner/internal/domain"
)

// FallbackTitle is used when a mention has no usable text at all.
const FallbackTitle = "Issue reported via Twitter"

const titleLimit = 100

var (
	leadingMentions = regexp.MustCompile(`^(@\w+\s*)+`)
	urlExpr         = regexp.MustCompile(`https?://\S+`)
	spaceExpr       = regexp.MustCompile(`\s+`)
	sentenceEnd     = regexp.MustCompile(`[.!?]\s`)
	trailingTags    = regexp.MustCompile(`(\s*#\w+)+$`)
)

// locationPatterns are locale-specific extraction rules applied to clean
// text, in priority order. First match wins.
var locationPatterns = []*regexp.Regexp{
	// "near X", "at X", "in X" phrases
	regexp.MustCompile(`(?i)(?:near|at|in|from|around)\s+([A-Za-z][A-Za-z\s,]+?)(?:\.|,|!|\?|$|\s+(?:road|sector|area|colony))`),
	// sector numbering, common in Delhi NCR
	regexp.MustCompile(`(?i)(?:sector|sec)[\s\-]*(\d+[A-Za-z]?(?:\s*,\s*[A-Za-z]+)?)`),
	// road/street suffixes
	regexp.MustCompile(`(?i)([A-Za-z\s]+(?:Road|Street|Marg|Chowk|Circle|Flyover|Bridge))`),
	// colony/neighborhood suffixes
	regexp.MustCompile(`(?i)([A-Za-z\s]+(?:Colony|Nagar|Enclave|Vihar|Park|Extension|Phase|Block))`),
	// ward numbering
	regexp.MustCompile(`(?i)ward[\s\-]*(?:no\.?\s*)?(\d+[A-Za-z]?)`),
}

// categoryHints maps keyword lists to categories, used as a preliminary
// hint when the classifier is unavailable or non-committal.
var categoryHints = []struct {
	category string
	keywords []string
}{
	{"roads", []string{"pothole", "road", "street", "footpath", "pavement", "broken road", "damaged road"}},
	{"sanitation", []string{"garbage", "trash", "waste", "dump", "dirty", "filth", "litter"}},
	{"water", []string{"water", "pipeline", "leak", "supply", "tanker", "sewage", "drain", "waterlogging"}},
	{"electricity", []string{"power", "electricity", "light", "streetlight", "outage", "blackout", "power cut"}},
	{"traffic", []string{"traffic", "signal", "jam", "congestion", "parking"}},
	{"public_safety", []string{"crime", "theft", "harassment", "unsafe", "danger", "police"}},
	{"encroachment", []string{"encroach", "illegal", "occupy", "hawker", "vendor"}},
	{"parks", []string{"park", "garden", "playground", "green", "tree"}},
	{"health", []string{"hospital", "clinic", "medical", "disease", "epidemic"}},
	{"transport", []string{"bus", "metro", "auto", "rickshaw", "cab"}},
}

// Parse transforms one raw mention into an issue-ready candidate. It is a
// pure function: same inputs, same candidate, no I/O.
func Parse(text string, mention domain.RawMention, author domain.Author, media []domain.Media) domain.ParsedMention {
	clean := CleanText(text)

	description := clean
	if description == "" {
		description = text
	}

	loc := extractLocation(clean, mention.Geo, mention.Hashtags)

	return domain.ParsedMention{
		Title:       ExtractTitle(clean),
		Description: description,
		Hashtags:    mention.Hashtags,
		MediaURLs:   extractMediaURLs(media),
		Location:    loc.location,
		City:        loc.city,
		Coordinates: loc.coords,
		HasGeotag:   loc.hasGeotag,
		Confidence:  loc.confidence,
	}
}

// CleanText strips leading @-mentions and URLs and collapses whitespace.
func CleanText(text string) string {
	text = leadingMentions.ReplaceAllString(text, "")
	text = urlExpr.ReplaceAllString(text, "")
	text = spaceExpr.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExtractTitle derives a title from clean text: the first sentence,
// truncated to 100 characters at a word boundary, with trailing hashtags
// dropped. Falls back to a truncated prefix, then to a fixed placeholder.
func ExtractTitle(text string) string {
	if text == "" {
		return FallbackTitle
	}

	first := text
	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		first = text[:loc[0]]
	}
	first = strings.TrimSpace(trailingTags.ReplaceAllString(first, ""))

	if first != "" {
		return truncateAtWord(first, titleLimit)
	}
	return truncateAtWord(text, titleLimit-3)
}

func truncateAtWord(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := string(r[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// SuggestCategory returns a keyword-based category hint, or "" when the
// text matches nothing.
func SuggestCategory(text string) string {
	lower := strings.ToLower(text)
	for _, hint := range categoryHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				return hint.category
			}
		}
	}
	return ""
}

type located struct {
	location   string
	city       string
	hasGeotag  bool
	coords     *domain.Point
	confidence domain.LocationConfidence
}

// extractLocation runs the four strategies in strict priority order:
// geotag, text patterns, hashtag gazetteer, free-text gazetteer. The first
// strategy yielding a value wins that value, while the confidence tier
// records the best evidence seen.
func extractLocation(clean string, geo *domain.Geo, hashtags []string) located {
	res := located{confidence: domain.ConfidenceNone}

	if geo != nil {
		if len(geo.Coordinates) >= 2 {
			// provider order is (longitude, latitude)
			res.hasGeotag = true
			res.coords = &domain.Point{Latitude: geo.Coordinates[1], Longitude: geo.Coordinates[0]}
			res.confidence = domain.ConfidenceHigh
		}
		if geo.PlaceName != "" {
			res.location = geo.PlaceName
		}
	}

	if res.location == "" {
		for _, pattern := range locationPatterns {
			m := pattern.FindStringSubmatch(clean)
			if m == nil {
				continue
			}
			loc := strings.Trim(spaceExpr.ReplaceAllString(m[1], " "), " ,.")
			if len(loc) < 3 {
				continue
			}
			res.location = loc
			if res.confidence == domain.ConfidenceNone {
				res.confidence = domain.ConfidenceMedium
			}
			break
		}
	}

	for _, tag := range hashtags {
		city, ok := LookupCity(tag)
		if !ok {
			continue
		}
		res.city = city.Name
		if res.coords == nil {
			res.coords = city.Centroid()
		}
		if res.confidence == domain.ConfidenceNone {
			res.confidence = domain.ConfidenceLow
		}
		break
	}

	if res.city == "" {
		if city, ok := findCityInText(strings.ToLower(clean)); ok {
			res.city = city.Name
			if res.coords == nil {
				res.coords = city.Centroid()
			}
			if res.confidence == domain.ConfidenceNone {
				res.confidence = domain.ConfidenceLow
			}
		}
	}

	return res
}

// extractMediaURLs keeps the source ordering and prefers full-resolution
// URLs over preview thumbnails.
func extractMediaURLs(media []domain.Media) []string {
	urls := make([]string, 0, len(media))
	for _, m := range media {
		switch {
		case m.URL != "":
			urls = append(urls, m.URL)
		case m.PreviewImageURL != "":
			urls = append(urls, m.PreviewImageURL)
		}
	}
	return urls
}
