package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/llm"
	"github.com/tablerank/tablerank/pkg/models"
)

// DefaultExplainTimeout bounds the reasoning call; it is the only
// meaningfully blocking operation in the pipeline.
const DefaultExplainTimeout = 10 * time.Second

// ExplainOutcome is the explainer's result. Explained distinguishes a
// successful re-rank from the fallback; the orchestrator branches on
// it instead of catching errors.
type ExplainOutcome struct {
	Candidates []models.Candidate
	Explained  bool
}

// Explainer asks the reasoning service to reorder and annotate the
// candidate pool. Every failure mode degrades to the heuristic order
// with no reasons attached; nothing propagates past this service.
type Explainer struct {
	reasoner llm.Reasoner
	enabled  bool
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewExplainer creates the explainer. A nil reasoner or enabled=false
// turns every call into a fallback.
func NewExplainer(reasoner llm.Reasoner, enabled bool, timeout time.Duration, logger *logrus.Logger) *Explainer {
	if timeout <= 0 {
		timeout = DefaultExplainTimeout
	}
	return &Explainer{
		reasoner: reasoner,
		enabled:  enabled,
		timeout:  timeout,
		logger:   logger,
	}
}

// Enabled reports whether re-ranking is active.
func (ex *Explainer) Enabled() bool {
	return ex.enabled && ex.reasoner != nil
}

// Explain re-ranks the candidate pool via the reasoning service.
// Candidates the service does not mention keep their heuristic order
// after the mentioned ones; ids not present in the pool are dropped
// silently.
func (ex *Explainer) Explain(ctx context.Context, pref *models.Preference, candidates []models.Candidate) ExplainOutcome {
	fallback := ExplainOutcome{Candidates: candidates, Explained: false}

	if !ex.enabled || ex.reasoner == nil || len(candidates) == 0 {
		return fallback
	}

	summaries := make([]llm.CandidateSummary, 0, len(candidates))
	for _, c := range candidates {
		summaries = append(summaries, llm.CandidateSummary{
			ID:          c.Restaurant.ID,
			Name:        c.Restaurant.Name,
			PriceBucket: c.Restaurant.PriceBucket,
			AvgRating:   c.Restaurant.AvgRating,
			Cuisines:    c.Restaurant.Cuisines,
		})
	}

	prefs := llm.PreferenceSummary{
		Location:            pref.Location,
		PriceRange:          pref.PriceRange,
		MinRating:           pref.MinRating,
		Cuisines:            pref.Cuisines,
		FreeTextPreferences: pref.FreeTextPreferences,
	}

	callCtx, cancel := context.WithTimeout(ctx, ex.timeout)
	defer cancel()

	ranked, err := ex.reasoner.RankAndExplain(callCtx, prefs, summaries)
	if err != nil {
		explainerFallbacksTotal.Inc()
		ex.logger.WithError(err).Warn("Reasoning call failed, serving heuristic ranking")
		return fallback
	}
	if len(ranked) == 0 {
		explainerFallbacksTotal.Inc()
		return fallback
	}

	byID := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byID[c.Restaurant.ID] = i
	}

	reordered := make([]models.Candidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(ranked))
	for _, r := range ranked {
		idx, ok := byID[r.ID]
		if !ok {
			// The model invented an id; skip it.
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		c := candidates[idx]
		reason := r.Reason
		rank := len(reordered) + 1
		c.Reason = &reason
		c.LLMRank = &rank
		reordered = append(reordered, c)
	}

	if len(reordered) == 0 {
		explainerFallbacksTotal.Inc()
		return fallback
	}

	// Unmentioned candidates keep their heuristic order at the tail.
	for _, c := range candidates {
		if _, ok := seen[c.Restaurant.ID]; !ok {
			reordered = append(reordered, c)
		}
	}

	return ExplainOutcome{Candidates: reordered, Explained: true}
}
