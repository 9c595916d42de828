package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerank/tablerank/internal/llm"
	"github.com/tablerank/tablerank/pkg/models"
)

func candidatePool() []models.Candidate {
	mk := func(id string, score float64) models.Candidate {
		return models.Candidate{
			Restaurant: &models.Restaurant{
				ID:          id,
				Name:        "Restaurant " + id,
				PriceBucket: "$$",
				AvgRating:   4.0,
				Cuisines:    []string{"Continental"},
			},
			HeuristicScore: score,
			CombinedScore:  score,
		}
	}
	return []models.Candidate{mk("r1", 0.9), mk("r2", 0.8), mk("r3", 0.7)}
}

func poolIDs(candidates []models.Candidate) []string {
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Restaurant.ID)
	}
	return ids
}

func TestExplainer_Explain(t *testing.T) {
	pref := &models.Preference{Location: "Koramangala"}

	t.Run("successful re-rank attaches reasons", func(t *testing.T) {
		reasoner := &fakeReasoner{ranked: []llm.RankedCandidate{
			{ID: "r3", Reason: "closest cuisine match"},
			{ID: "r1", Reason: "highest rated nearby"},
		}}
		ex := NewExplainer(reasoner, true, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, candidatePool())
		assert.True(t, outcome.Explained)
		assert.Equal(t, 1, reasoner.calls)

		// Mentioned ids lead in model order; r2 keeps heuristic order at
		// the tail with no reason.
		assert.Equal(t, []string{"r3", "r1", "r2"}, poolIDs(outcome.Candidates))

		r3 := outcome.Candidates[0]
		require.NotNil(t, r3.Reason)
		assert.Equal(t, "closest cuisine match", *r3.Reason)
		require.NotNil(t, r3.LLMRank)
		assert.Equal(t, 1, *r3.LLMRank)

		r2 := outcome.Candidates[2]
		assert.Nil(t, r2.Reason)
		assert.Nil(t, r2.LLMRank)
	})

	t.Run("reasoner error falls back to heuristic order", func(t *testing.T) {
		reasoner := &fakeReasoner{err: errReasonerDown}
		ex := NewExplainer(reasoner, true, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, candidatePool())
		assert.False(t, outcome.Explained)
		assert.Equal(t, []string{"r1", "r2", "r3"}, poolIDs(outcome.Candidates))
		for _, c := range outcome.Candidates {
			assert.Nil(t, c.Reason)
		}
	})

	t.Run("invented and duplicate ids are dropped", func(t *testing.T) {
		reasoner := &fakeReasoner{ranked: []llm.RankedCandidate{
			{ID: "r2", Reason: "good value"},
			{ID: "r2", Reason: "repeated"},
			{ID: "ghost", Reason: "does not exist"},
		}}
		ex := NewExplainer(reasoner, true, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, candidatePool())
		assert.True(t, outcome.Explained)
		assert.Equal(t, []string{"r2", "r1", "r3"}, poolIDs(outcome.Candidates))
		require.NotNil(t, outcome.Candidates[0].Reason)
		assert.Equal(t, "good value", *outcome.Candidates[0].Reason)
	})

	t.Run("only invented ids falls back", func(t *testing.T) {
		reasoner := &fakeReasoner{ranked: []llm.RankedCandidate{
			{ID: "ghost", Reason: "nope"},
		}}
		ex := NewExplainer(reasoner, true, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, candidatePool())
		assert.False(t, outcome.Explained)
		assert.Equal(t, []string{"r1", "r2", "r3"}, poolIDs(outcome.Candidates))
	})

	t.Run("disabled explainer never calls the reasoner", func(t *testing.T) {
		reasoner := &fakeReasoner{}
		ex := NewExplainer(reasoner, false, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, candidatePool())
		assert.False(t, outcome.Explained)
		assert.Zero(t, reasoner.calls)
		assert.False(t, ex.Enabled())
	})

	t.Run("empty pool is a fallback", func(t *testing.T) {
		reasoner := &fakeReasoner{}
		ex := NewExplainer(reasoner, true, time.Second, testLogger())

		outcome := ex.Explain(context.Background(), pref, nil)
		assert.False(t, outcome.Explained)
		assert.Empty(t, outcome.Candidates)
		assert.Zero(t, reasoner.calls)
	})
}
