package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/corpus"
	"github.com/tablerank/tablerank/internal/ml"
	"github.com/tablerank/tablerank/pkg/models"
)

const (
	// MaxRating is the upper bound of the corpus rating scale.
	MaxRating = 5.0

	// DefaultPoolSize bounds the candidate pool handed to the explainer.
	DefaultPoolSize = 30

	// DefaultSemanticBlend is the semantic share of the combined score
	// when free-text preferences are present.
	DefaultSemanticBlend = 0.5
)

// ScoringEngine computes the weighted heuristic score and, when
// free-text preferences are present, blends in semantic similarity
// against the corpus embeddings.
type ScoringEngine struct {
	corpus        *corpus.Store
	embedder      ml.TextEmbedder
	semanticBlend float64
	logger        *logrus.Logger
}

// NewScoringEngine creates the engine. The embedder may be nil, in
// which case free-text preferences only lose their semantic component.
func NewScoringEngine(store *corpus.Store, embedder ml.TextEmbedder, semanticBlend float64, logger *logrus.Logger) *ScoringEngine {
	if semanticBlend <= 0 || semanticBlend >= 1 {
		semanticBlend = DefaultSemanticBlend
	}
	return &ScoringEngine{
		corpus:        store,
		embedder:      embedder,
		semanticBlend: semanticBlend,
		logger:        logger,
	}
}

// Score ranks the candidates under the given weights. The result is
// sorted by combined score descending, ties broken by rating descending
// then id ascending so identical inputs always produce identical order.
// A failing embed call degrades to heuristic-only scoring; it never
// fails the request.
func (e *ScoringEngine) Score(
	ctx context.Context,
	pref *models.Preference,
	candidates []*models.Restaurant,
	weights models.ScoringWeights,
) []models.Candidate {
	requested := make([]string, 0, len(pref.Cuisines))
	for _, c := range pref.Cuisines {
		if folded := corpus.Fold(c); folded != "" {
			requested = append(requested, folded)
		}
	}

	scored := make([]models.Candidate, 0, len(candidates))
	for _, r := range candidates {
		heuristic := weights.Rating*(r.AvgRating/MaxRating) +
			weights.Cuisine*cuisineOverlap(requested, r.Cuisines) +
			weights.Price*priceAlignment(pref.PriceRange, r.PriceBucket)

		scored = append(scored, models.Candidate{
			Restaurant:     r,
			HeuristicScore: heuristic,
			CombinedScore:  heuristic,
		})
	}

	if pref.FreeTextPreferences != "" {
		e.blendSemantic(ctx, pref.FreeTextPreferences, scored)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].CombinedScore != scored[j].CombinedScore {
			return scored[i].CombinedScore > scored[j].CombinedScore
		}
		if scored[i].Restaurant.AvgRating != scored[j].Restaurant.AvgRating {
			return scored[i].Restaurant.AvgRating > scored[j].Restaurant.AvgRating
		}
		return scored[i].Restaurant.ID < scored[j].Restaurant.ID
	})

	return scored
}

// blendSemantic embeds the free text and mixes cosine similarity into
// the combined scores in place.
func (e *ScoringEngine) blendSemantic(ctx context.Context, freeText string, scored []models.Candidate) {
	if e.embedder == nil {
		return
	}

	queryVec, err := e.embedder.Embed(ctx, freeText)
	if err != nil {
		e.logger.WithError(err).Warn("Free-text embedding failed, serving heuristic-only scores")
		return
	}

	for i := range scored {
		vec, err := e.corpus.EmbeddingOf(scored[i].Restaurant.ID)
		if err != nil {
			// Load invariant guarantees an embedding per row; a miss
			// here means a stale reference, skipped silently.
			continue
		}

		// Cosine similarity rescaled from [-1, 1] to [0, 1].
		semantic := (ml.CosineSimilarity(queryVec, vec) + 1.0) / 2.0
		scored[i].SemanticScore = &semantic
		scored[i].CombinedScore = (1-e.semanticBlend)*scored[i].HeuristicScore + e.semanticBlend*semantic
	}
}

// cuisineOverlap is |requested ∩ available| / |requested|, or 1.0 when
// no cuisines were requested. requested must already be folded.
func cuisineOverlap(requested []string, available []string) float64 {
	if len(requested) == 0 {
		return 1.0
	}

	availableSet := make(map[string]struct{}, len(available))
	for _, c := range available {
		availableSet[corpus.Fold(c)] = struct{}{}
	}

	matches := 0
	for _, c := range requested {
		if _, ok := availableSet[c]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(requested))
}

// priceAlignment is 1.0 when no range was requested or the bucket is in
// the requested range, otherwise it decays by half per tier of distance
// to the nearest requested bucket, floored at 0. Since the price range
// is enforced as a hard filter upstream, surviving candidates always
// score 1.0 when a range is present; the decay only matters for
// standalone use of the engine.
func priceAlignment(requested []string, bucket string) float64 {
	if len(requested) == 0 {
		return 1.0
	}

	bucketIdx := models.PriceBucketIndex(bucket)
	if bucketIdx < 0 {
		return 0.0
	}

	minDist := -1
	for _, b := range requested {
		idx := models.PriceBucketIndex(b)
		if idx < 0 {
			continue
		}
		dist := bucketIdx - idx
		if dist < 0 {
			dist = -dist
		}
		if minDist < 0 || dist < minDist {
			minDist = dist
		}
	}
	if minDist < 0 {
		return 0.0
	}

	alignment := 1.0 - 0.5*float64(minDist)
	if alignment < 0 {
		return 0.0
	}
	return alignment
}
