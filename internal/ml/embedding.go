// Package ml provides the text-embedding client and the vector math
// used for semantic scoring.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gonum.org/v1/gonum/floats"
)

// TextEmbedder turns free-form text into a vector with the same
// dimensionality as the corpus embeddings.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HTTPEmbedderConfig configures the HTTP embedding client.
type HTTPEmbedderConfig struct {
	BaseURL    string
	Model      string
	Dimension  int
	HTTPClient *http.Client
}

// HTTPEmbedder calls an Ollama-compatible embedding endpoint.
type HTTPEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewHTTPEmbedder creates an embedding client for the given endpoint.
func NewHTTPEmbedder(cfg HTTPEmbedderConfig) *HTTPEmbedder {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEmbedder{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    client,
	}
}

// Embed generates an embedding vector for a single query string.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}

	if len(result.Embedding) != e.dimension {
		return nil, fmt.Errorf("embedding dimension %d does not match corpus dimension %d",
			len(result.Embedding), e.dimension)
	}

	vec := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension returns the vector length this embedder produces.
func (e *HTTPEmbedder) Dimension() int {
	return e.dimension
}

var _ TextEmbedder = (*HTTPEmbedder)(nil)

// CosineSimilarity returns the cosine of the angle between two vectors,
// in [-1, 1]. Zero-norm vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	fa := make([]float64, len(a))
	fb := make([]float64, len(b))
	for i := range a {
		fa[i] = float64(a[i])
		fb[i] = float64(b[i])
	}

	normA := floats.Norm(fa, 2)
	normB := floats.Norm(fb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(fa, fb) / (normA * normB)
}
