package services

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/database"
	"github.com/tablerank/tablerank/internal/llm"
	"github.com/tablerank/tablerank/internal/ml"
)

type Services struct {
	RateLimit    *RateLimitService
	Cache        *QueryCache
	Experiments  *ExperimentService
	Scoring      *ScoringEngine
	Explainer    *Explainer
	Analytics    *AnalyticsService
	Orchestrator *RetrievalOrchestrator
}

// New wires the retrieval pipeline. The event publisher may be nil;
// analytics then stays in process memory.
func New(
	cfg *config.Config,
	logger *logrus.Logger,
	db *database.Database,
	store *corpus.Store,
	publisher EventPublisher,
) (*Services, error) {
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)
	cache := NewQueryCache(cfg.Retrieval.CacheTTL, logger)

	experiments, err := NewExperimentService(&cfg.Experiment, logger)
	if err != nil {
		return nil, err
	}

	// Query embeddings must match the corpus embedding space.
	dimensions := store.Dimensions()
	if dimensions == 0 {
		dimensions = cfg.Embedding.Dimensions
	}
	embedder := ml.NewHTTPEmbedder(ml.HTTPEmbedderConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimension:  dimensions,
		HTTPClient: &http.Client{Timeout: cfg.Embedding.Timeout},
	})
	scoring := NewScoringEngine(store, embedder, cfg.Retrieval.SemanticBlend, logger)

	// Re-ranking runs only when a key is configured; without one the
	// pipeline serves heuristic order with no reasons.
	llmEnabled := cfg.LLM.Enabled && cfg.LLM.APIKey != ""
	var reasoner llm.Reasoner
	if llmEnabled {
		client, err := llm.NewGroqClient(cfg.LLM.APIKey,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithModel(cfg.LLM.Model),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}),
		)
		if err != nil {
			return nil, err
		}
		reasoner = client
	}
	explainer := NewExplainer(reasoner, llmEnabled, cfg.LLM.Timeout, logger)

	analytics := NewAnalyticsService(publisher, logger)

	orchestrator := NewRetrievalOrchestrator(
		store, scoring, explainer, cache, experiments, analytics,
		cfg.Retrieval.PoolSize, cfg.Retrieval.DefaultLimit, logger,
	)

	return &Services{
		RateLimit:    rateLimitService,
		Cache:        cache,
		Experiments:  experiments,
		Scoring:      scoring,
		Explainer:    explainer,
		Analytics:    analytics,
		Orchestrator: orchestrator,
	}, nil
}
