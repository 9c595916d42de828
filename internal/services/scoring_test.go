package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerank/tablerank/pkg/models"
)

func TestScoringEngine_Score(t *testing.T) {
	store := testStore(t)
	weights := models.ScoringWeights{Rating: 0.6, Cuisine: 0.3, Price: 0.1}

	t.Run("heuristic components", func(t *testing.T) {
		engine := NewScoringEngine(store, nil, 0.5, testLogger())
		pref := &models.Preference{
			Location: "Koramangala",
			Cuisines: []string{"Biryani", "Sushi"},
		}
		candidates := store.FilterCandidates(pref)

		scored := engine.Score(context.Background(), pref, candidates, weights)
		require.NotEmpty(t, scored)

		byID := make(map[string]models.Candidate)
		for _, c := range scored {
			byID[c.Restaurant.ID] = c
		}

		// r2: rating 4.4/5, one of two requested cuisines, no price range.
		r2 := byID["r2"]
		assert.InDelta(t, 0.6*(4.4/5)+0.3*0.5+0.1*1.0, r2.HeuristicScore, 1e-9)
		assert.Equal(t, r2.HeuristicScore, r2.CombinedScore)
		assert.Nil(t, r2.SemanticScore)
	})

	t.Run("no requested cuisines scores full overlap", func(t *testing.T) {
		engine := NewScoringEngine(store, nil, 0.5, testLogger())
		pref := &models.Preference{Location: "Koramangala"}
		candidates := store.FilterCandidates(pref)

		scored := engine.Score(context.Background(), pref, candidates, weights)
		for _, c := range scored {
			assert.InDelta(t, 0.6*(c.Restaurant.AvgRating/5)+0.3+0.1, c.HeuristicScore, 1e-9)
		}
	})

	t.Run("sorted by combined score with deterministic ties", func(t *testing.T) {
		engine := NewScoringEngine(store, nil, 0.5, testLogger())
		pref := &models.Preference{Location: "Bangalore"}
		candidates := store.FilterCandidates(pref)

		scored := engine.Score(context.Background(), pref, candidates, weights)
		require.Len(t, scored, 4)
		for i := 1; i < len(scored); i++ {
			assert.GreaterOrEqual(t, scored[i-1].CombinedScore, scored[i].CombinedScore)
		}
		// Highest rated first under rating-heavy weights.
		assert.Equal(t, "r1", scored[0].Restaurant.ID)
	})

	t.Run("free text blends semantic similarity", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1.0, 0.0}}
		engine := NewScoringEngine(store, embedder, 0.5, testLogger())
		pref := &models.Preference{
			Location:            "Bangalore",
			FreeTextPreferences: "cozy burger place",
		}
		candidates := store.FilterCandidates(pref)

		scored := engine.Score(context.Background(), pref, candidates, weights)
		require.Len(t, scored, 4)
		assert.Equal(t, 1, embedder.calls)

		byID := make(map[string]models.Candidate)
		for _, c := range scored {
			byID[c.Restaurant.ID] = c
		}

		// r1's embedding equals the query: cosine 1 rescales to 1.
		r1 := byID["r1"]
		require.NotNil(t, r1.SemanticScore)
		assert.InDelta(t, 1.0, *r1.SemanticScore, 1e-6)
		assert.InDelta(t, 0.5*r1.HeuristicScore+0.5*1.0, r1.CombinedScore, 1e-6)

		// r4's embedding opposes the query: cosine -1 rescales to 0.
		r4 := byID["r4"]
		require.NotNil(t, r4.SemanticScore)
		assert.InDelta(t, 0.0, *r4.SemanticScore, 1e-6)
		assert.InDelta(t, 0.5*r4.HeuristicScore, r4.CombinedScore, 1e-6)
	})

	t.Run("embedding failure degrades to heuristic scores", func(t *testing.T) {
		embedder := &fakeEmbedder{err: errReasonerDown}
		engine := NewScoringEngine(store, embedder, 0.5, testLogger())
		pref := &models.Preference{
			Location:            "Bangalore",
			FreeTextPreferences: "something fancy",
		}
		candidates := store.FilterCandidates(pref)

		scored := engine.Score(context.Background(), pref, candidates, weights)
		require.NotEmpty(t, scored)
		for _, c := range scored {
			assert.Nil(t, c.SemanticScore)
			assert.Equal(t, c.HeuristicScore, c.CombinedScore)
		}
	})

	t.Run("variant weights reorder results", func(t *testing.T) {
		engine := NewScoringEngine(store, nil, 0.5, testLogger())
		// Filter on location only so the cuisine weight differentiates
		// instead of excluding.
		candidates := store.FilterCandidates(&models.Preference{Location: "Bangalore"})
		pref := &models.Preference{
			Location: "Bangalore",
			Cuisines: []string{"South Indian"},
		}

		ratingHeavy := engine.Score(context.Background(), pref, candidates,
			models.ScoringWeights{Rating: 1.0})
		cuisineHeavy := engine.Score(context.Background(), pref, candidates,
			models.ScoringWeights{Cuisine: 1.0})

		assert.Equal(t, "r1", ratingHeavy[0].Restaurant.ID)
		assert.Equal(t, "r3", cuisineHeavy[0].Restaurant.ID)
	})
}

func TestCuisineOverlap(t *testing.T) {
	assert.Equal(t, 1.0, cuisineOverlap(nil, []string{"Biryani"}))
	assert.Equal(t, 0.5, cuisineOverlap([]string{"biryani", "sushi"}, []string{"Biryani", "Andhra"}))
	assert.Equal(t, 0.0, cuisineOverlap([]string{"sushi"}, []string{"Biryani"}))
	assert.Equal(t, 1.0, cuisineOverlap([]string{"biryani"}, []string{"Biryani"}))
}

func TestPriceAlignment(t *testing.T) {
	assert.Equal(t, 1.0, priceAlignment(nil, "$$"))
	assert.Equal(t, 1.0, priceAlignment([]string{"$$"}, "$$"))
	assert.Equal(t, 0.5, priceAlignment([]string{"$"}, "$$"))
	assert.Equal(t, 0.0, priceAlignment([]string{"$"}, "$$$"))
	assert.Equal(t, 0.0, priceAlignment([]string{"$"}, "$$$$"))
	assert.Equal(t, 0.5, priceAlignment([]string{"$", "$$$$"}, "$$$"))
	assert.Equal(t, 0.0, priceAlignment([]string{"$"}, "unknown"))
}
