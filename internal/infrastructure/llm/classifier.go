package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"CivicScanner/internal/config"
	"CivicScanner/internal/domain"
	"CivicScanner/internal/ports"
)

const systemPrompt = `You are an expert at analyzing reports about civic issues in Indian cities.
Decide whether the text reports a civic issue: a problem with public infrastructure, services, or safety that a government body should address.
NOT civic issues: personal opinions, jokes, questions, general conversation, political commentary without a specific issue.

Categories available:
- roads: Potholes, road damage, street lights, traffic signals
- sanitation: Garbage, sewage, drains, cleanliness
- water: Water supply, leakage, contamination
- electricity: Power cuts, streetlights, illegal connections
- encroachment: Illegal construction, footpath blocking
- parks: Park maintenance, playground issues
- public_safety: Crime, harassment, safety concerns
- health: Hospital issues, epidemic concerns
- education: School issues, mid-day meals
- transport: Bus, metro, auto-rickshaw issues
- housing: Building permissions, slum issues
- general: Other issues

Respond ONLY with valid JSON in this exact format:
{
    "is_civic_issue": true,
    "category": "category_name",
    "sub_category": "optional_sub_category_or_null",
    "suggested_handlers": ["handler_id"],
    "confidence": 0.85
}`

// Classifier calls an Anthropic-style messages API to classify candidates.
// Every failure mode degrades to the default classification: the pipeline
// treats the degraded path as valid input, never as an error.
type Classifier struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a classifier client from configuration.
func NewClassifier(cfg config.ClassifierConfig, logger *slog.Logger) *Classifier {
	return &Classifier{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// Classify sends the candidate to the model and parses its JSON verdict.
func (c *Classifier) Classify(ctx context.Context, title, description, locationHint string) (domain.Classification, error) {
	if c.apiKey == "" {
		return domain.DefaultClassification(), nil
	}

	prompt := fmt.Sprintf("Classify this civic report:\nTitle: %s\nDescription: %s", title, description)
	if locationHint != "" {
		prompt += "\nLocation: " + locationHint
	}
	prompt += "\n\nRespond with JSON only."

	text, err := c.complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("classifier unavailable, using default classification", "error", err)
		return domain.DefaultClassification(), nil
	}

	verdict, err := parseVerdict(text)
	if err != nil {
		c.logger.Warn("classifier returned malformed verdict, using default", "error", err)
		return domain.DefaultClassification(), nil
	}
	return verdict, nil
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": 300,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return envelope.Content[0].Text, nil
}

// parseVerdict extracts the JSON verdict, tolerating markdown code fences
// around it.
func parseVerdict(text string) (domain.Classification, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		if len(parts) >= 2 {
			text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "json"))
		}
	}

	var verdict struct {
		IsCivicIssue      *bool    `json:"is_civic_issue"`
		Category          string   `json:"category"`
		SubCategory       string   `json:"sub_category"`
		SuggestedHandlers []string `json:"suggested_handlers"`
		Confidence        float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return domain.Classification{}, fmt.Errorf("parse verdict: %w", err)
	}

	result := domain.Classification{
		Civic:             true,
		Category:          verdict.Category,
		SubCategory:       verdict.SubCategory,
		SuggestedHandlers: verdict.SuggestedHandlers,
		Confidence:        verdict.Confidence,
	}
	if verdict.IsCivicIssue != nil {
		result.Civic = *verdict.IsCivicIssue
	}
	if result.Category == "" {
		result.Category = "general"
	}
	return result, nil
}
