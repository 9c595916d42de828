package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerank/tablerank/internal/config"
)

func defaultExperimentConfig() *config.ExperimentConfig {
	return &config.ExperimentConfig{
		VariantA:        config.WeightsConfig{Rating: 0.6, Cuisine: 0.3, Price: 0.1},
		VariantB:        config.WeightsConfig{Rating: 0.4, Cuisine: 0.3, Price: 0.3},
		WinnerThreshold: 5.0,
	}
}

func newTestExperiments(t *testing.T) *ExperimentService {
	t.Helper()
	svc, err := NewExperimentService(defaultExperimentConfig(), testLogger())
	require.NoError(t, err)
	return svc
}

func TestNewExperimentService(t *testing.T) {
	t.Run("accepts valid config", func(t *testing.T) {
		svc := newTestExperiments(t)
		assert.Equal(t, 0.6, svc.WeightsFor(VariantA).Rating)
		assert.Equal(t, 0.3, svc.WeightsFor(VariantB).Price)
	})

	t.Run("rejects weights not summing to one", func(t *testing.T) {
		cfg := defaultExperimentConfig()
		cfg.VariantB.Price = 0.5
		_, err := NewExperimentService(cfg, testLogger())
		assert.ErrorContains(t, err, "sum to 1.0")
	})

	t.Run("rejects negative weights", func(t *testing.T) {
		cfg := defaultExperimentConfig()
		cfg.VariantA = config.WeightsConfig{Rating: 1.2, Cuisine: -0.2, Price: 0.0}
		_, err := NewExperimentService(cfg, testLogger())
		assert.ErrorContains(t, err, "negative")
	})

	t.Run("rejects identical variants", func(t *testing.T) {
		cfg := defaultExperimentConfig()
		cfg.VariantB = cfg.VariantA
		_, err := NewExperimentService(cfg, testLogger())
		assert.ErrorContains(t, err, "must differ")
	})
}

func TestExperimentService_Assign(t *testing.T) {
	t.Run("assignment is sticky", func(t *testing.T) {
		svc := newTestExperiments(t)
		first := svc.Assign("session-1")
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, svc.Assign("session-1"))
		}
	})

	t.Run("different sessions can get different variants", func(t *testing.T) {
		svc := newTestExperiments(t)
		svc.pick = func() string { return VariantB }
		assert.Equal(t, VariantB, svc.Assign("session-b"))

		svc.pick = func() string { return VariantA }
		assert.Equal(t, VariantA, svc.Assign("session-a"))
		// Earlier assignment is untouched by the new pick.
		assert.Equal(t, VariantB, svc.Assign("session-b"))
	})

	t.Run("unknown variant falls back to control weights", func(t *testing.T) {
		svc := newTestExperiments(t)
		assert.Equal(t, svc.WeightsFor(VariantA), svc.WeightsFor("Z"))
	})
}

func TestExperimentService_Results(t *testing.T) {
	record := func(svc *ExperimentService, variant string, positive, negative int) {
		for i := 0; i < positive; i++ {
			svc.RecordFeedback(variant, true)
		}
		for i := 0; i < negative; i++ {
			svc.RecordFeedback(variant, false)
		}
	}

	t.Run("no winner without feedback on both variants", func(t *testing.T) {
		svc := newTestExperiments(t)
		record(svc, VariantA, 10, 0)

		results := svc.Results()
		assert.Nil(t, results.Winner)
		assert.Equal(t, int64(10), results.Variants[VariantA].FeedbackPositive)
		assert.InDelta(t, 100.0, results.Variants[VariantA].SatisfactionRate, 0.001)
	})

	t.Run("winner declared at threshold gap", func(t *testing.T) {
		svc := newTestExperiments(t)
		record(svc, VariantA, 7, 3) // 70%
		record(svc, VariantB, 6, 4) // 60%

		results := svc.Results()
		require.NotNil(t, results.Winner)
		assert.Equal(t, VariantA, *results.Winner)
	})

	t.Run("no winner below threshold gap", func(t *testing.T) {
		svc := newTestExperiments(t)
		record(svc, VariantA, 62, 38) // 62%
		record(svc, VariantB, 60, 40) // 60%

		results := svc.Results()
		assert.Nil(t, results.Winner)
	})

	t.Run("variant B can win", func(t *testing.T) {
		svc := newTestExperiments(t)
		record(svc, VariantA, 1, 1) // 50%
		record(svc, VariantB, 9, 1) // 90%

		results := svc.Results()
		require.NotNil(t, results.Winner)
		assert.Equal(t, VariantB, *results.Winner)
	})

	t.Run("searches are tallied per variant", func(t *testing.T) {
		svc := newTestExperiments(t)
		svc.RecordSearch(VariantA)
		svc.RecordSearch(VariantA)
		svc.RecordSearch(VariantB)

		results := svc.Results()
		assert.Equal(t, int64(2), results.Variants[VariantA].Searches)
		assert.Equal(t, int64(1), results.Variants[VariantB].Searches)
	})
}
