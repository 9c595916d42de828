package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tablerank/tablerank/internal/validation"
)

const (
	// DefaultGroqBaseURL is the OpenAI-compatible Groq API endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the default reasoning model.
	DefaultModel = "llama-3.3-70b-versatile"

	// DefaultTimeout bounds the single rank-and-explain attempt.
	DefaultTimeout = 10 * time.Second

	// rerankTemperature keeps ranking output near-deterministic.
	rerankTemperature = 0.3
)

const systemPrompt = "You are a restaurant recommendation engine. " +
	"Given user preferences and a list of candidate restaurants, " +
	"re-rank them from best to worst match and provide a short, " +
	"friendly one-sentence explanation for each.\n\n" +
	"Return ONLY valid JSON in this exact format:\n" +
	`{"recommendations": [{"id": "<restaurant_id>", "reason": "<one sentence>"}]}` + "\n" +
	"Include only restaurants from the provided list. " +
	"Order from best match to worst."

// GroqClient implements Reasoner against Groq's chat-completions API.
type GroqClient struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	validator  *validation.RerankValidator
}

// GroqOption is a functional option for configuring GroqClient.
type GroqOption func(*GroqClient)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) GroqOption {
	return func(c *GroqClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the reasoning model.
func WithModel(model string) GroqOption {
	return func(c *GroqClient) {
		c.model = model
	}
}

// WithMaxTokens bounds the response size.
func WithMaxTokens(n int) GroqOption {
	return func(c *GroqClient) {
		c.maxTokens = n
	}
}

// WithHTTPClient sets a custom HTTP client; its timeout bounds the
// single attempt.
func WithHTTPClient(client *http.Client) GroqOption {
	return func(c *GroqClient) {
		c.httpClient = client
	}
}

// NewGroqClient creates a Groq reasoning client.
func NewGroqClient(apiKey string, opts ...GroqOption) (*GroqClient, error) {
	validator, err := validation.NewRerankValidator()
	if err != nil {
		return nil, err
	}

	c := &GroqClient{
		baseURL:    DefaultGroqBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
		maxTokens:  1024,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		validator:  validator,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rerankPayload struct {
	Recommendations []RankedCandidate `json:"recommendations"`
}

// RankAndExplain sends the preferences and candidate pool to the model
// and returns its ordering. The response is schema-validated before any
// field is trusted; a single attempt, no retries.
func (c *GroqClient) RankAndExplain(
	ctx context.Context,
	prefs PreferenceSummary,
	candidates []CandidateSummary,
) ([]RankedCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserMessage(prefs, candidates)},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    rerankTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reasoning API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("reasoning response has no choices")
	}

	content := []byte(chat.Choices[0].Message.Content)
	if err := c.validator.Validate(content); err != nil {
		return nil, err
	}

	var payload rerankPayload
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, fmt.Errorf("parsing rerank payload: %w", err)
	}

	return payload.Recommendations, nil
}

// buildUserMessage renders the preferences and the candidate pool as a
// compact markdown table. Only the fields the model needs.
func buildUserMessage(prefs PreferenceSummary, candidates []CandidateSummary) string {
	var sb strings.Builder

	sb.WriteString("## User Preferences\n")
	if prefs.Location != "" {
		fmt.Fprintf(&sb, "- Location: %s\n", prefs.Location)
	}
	if len(prefs.PriceRange) > 0 {
		fmt.Fprintf(&sb, "- Price range: %s\n", strings.Join(prefs.PriceRange, ", "))
	}
	if prefs.MinRating > 0 {
		fmt.Fprintf(&sb, "- Minimum rating: %g\n", prefs.MinRating)
	}
	if len(prefs.Cuisines) > 0 {
		fmt.Fprintf(&sb, "- Cuisines: %s\n", strings.Join(prefs.Cuisines, ", "))
	}
	if prefs.FreeTextPreferences != "" {
		fmt.Fprintf(&sb, "- Special preferences: %s\n", prefs.FreeTextPreferences)
	}

	sb.WriteString("\n## Candidate Restaurants\n")
	sb.WriteString("| ID | Name | Price | Rating | Cuisines |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "| %s | %s | %s | %.1f | %s |\n",
			c.ID, c.Name, c.PriceBucket, c.AvgRating, strings.Join(c.Cuisines, ", "))
	}

	return sb.String()
}

// Ensure GroqClient implements Reasoner.
var _ Reasoner = (*GroqClient)(nil)
