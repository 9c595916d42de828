package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/pkg/models"
)

// RetrievalOrchestrator composes the retrieval pipeline: variant
// resolution, cache lookup, filter, score, explain, truncate, cache
// store. It is the only service the request layer talks to.
type RetrievalOrchestrator struct {
	corpus       *corpus.Store
	scoring      *ScoringEngine
	explainer    *Explainer
	cache        *QueryCache
	experiments  *ExperimentService
	analytics    *AnalyticsService
	poolSize     int
	defaultLimit int
	logger       *logrus.Logger
}

// NewRetrievalOrchestrator wires the pipeline together.
func NewRetrievalOrchestrator(
	store *corpus.Store,
	scoring *ScoringEngine,
	explainer *Explainer,
	cache *QueryCache,
	experiments *ExperimentService,
	analytics *AnalyticsService,
	poolSize int,
	defaultLimit int,
	logger *logrus.Logger,
) *RetrievalOrchestrator {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &RetrievalOrchestrator{
		corpus:       store,
		scoring:      scoring,
		explainer:    explainer,
		cache:        cache,
		experiments:  experiments,
		analytics:    analytics,
		poolSize:     poolSize,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Recommend runs the full pipeline for one validated preference. It
// never fails: the worst case is an empty result set or a heuristic-only
// ranking when the reasoning service is unavailable.
func (o *RetrievalOrchestrator) Recommend(ctx context.Context, pref *models.Preference, sessionID string) *models.RecommendationResult {
	start := time.Now()

	limit := pref.Limit
	if limit <= 0 {
		limit = o.defaultLimit
	}

	variant := o.experiments.Assign(sessionID)
	fingerprint := Fingerprint(pref, variant)

	if cached := o.cache.Get(fingerprint); cached != nil {
		o.finish(pref, variant, cached, true, start)
		return cached
	}

	candidates := o.corpus.FilterCandidates(pref)
	totalCandidates := len(candidates)

	scored := o.scoring.Score(ctx, pref, candidates, o.experiments.WeightsFor(variant))
	if len(scored) > o.poolSize {
		scored = scored[:o.poolSize]
	}

	outcome := o.explainer.Explain(ctx, pref, scored)
	final := outcome.Candidates
	if len(final) > limit {
		final = final[:limit]
	}

	items := make([]models.RecommendationItem, 0, len(final))
	for _, c := range final {
		items = append(items, models.RecommendationItem{
			Restaurant: c.Restaurant,
			Score:      c.CombinedScore,
			Reason:     c.Reason,
			Variant:    variant,
		})
	}

	result := &models.RecommendationResult{
		Recommendations: items,
		TotalCandidates: totalCandidates,
	}

	o.cache.Put(fingerprint, result)

	o.logger.WithFields(logrus.Fields{
		"session_id":       sessionID,
		"variant":          variant,
		"total_candidates": totalCandidates,
		"returned":         len(items),
		"explained":        outcome.Explained,
		"latency":          time.Since(start),
	}).Info("Recommendations generated")

	o.finish(pref, variant, result, false, start)
	return result
}

// finish emits analytics and metrics for a served request, hit or miss.
func (o *RetrievalOrchestrator) finish(pref *models.Preference, variant string, result *models.RecommendationResult, cacheHit bool, start time.Time) {
	elapsed := time.Since(start)

	o.experiments.RecordSearch(variant)
	searchesTotal.WithLabelValues(variant).Inc()
	searchDuration.Observe(elapsed.Seconds())

	o.analytics.RecordSearch(SearchEvent{
		Location:       pref.Location,
		PriceRange:     pref.PriceRange,
		MinRating:      pref.MinRating,
		Cuisines:       pref.Cuisines,
		FreeText:       pref.FreeTextPreferences != "",
		Variant:        variant,
		CacheHit:       cacheHit,
		ResultCount:    len(result.Recommendations),
		ResponseTimeMS: float64(elapsed.Microseconds()) / 1000.0,
	})
}

// CacheStats exposes the query cache counters for the admin surface.
func (o *RetrievalOrchestrator) CacheStats() CacheStats {
	return o.cache.Stats()
}
