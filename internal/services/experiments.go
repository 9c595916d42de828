package services

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
	"github.com/tablerank/tablerank/pkg/models"
)

// The two scoring-weight variants of the experiment.
const (
	VariantA = "A"
	VariantB = "B"
)

// VariantStats summarizes one variant's accumulated feedback.
type VariantStats struct {
	Searches         int64   `json:"searches"`
	FeedbackPositive int64   `json:"feedback_positive"`
	FeedbackNegative int64   `json:"feedback_negative"`
	TotalFeedback    int64   `json:"total_feedback"`
	SatisfactionRate float64 `json:"satisfaction_rate"`
}

// ExperimentResults is the aggregated view of the experiment. Winner is
// nil until both variants have feedback and the satisfaction-rate gap
// reaches the threshold.
type ExperimentResults struct {
	Variants map[string]VariantStats `json:"variants"`
	Winner   *string                 `json:"winner"`
}

type variantCounters struct {
	searches int64
	positive int64
	negative int64
}

// ExperimentService assigns each session one of two scoring-weight
// variants and aggregates per-variant satisfaction. A session's variant
// never changes once assigned.
type ExperimentService struct {
	weights map[string]models.ScoringWeights
	// winnerThreshold is in percentage points of satisfaction rate.
	winnerThreshold float64
	logger          *logrus.Logger

	mu          sync.Mutex
	assignments map[string]string
	counters    map[string]*variantCounters

	// pick chooses the variant for a new session; swappable in tests.
	pick func() string
}

// NewExperimentService validates the two weight configurations and
// returns the assigner. Both variants must sum to 1.0 and differ in at
// least one weight.
func NewExperimentService(cfg *config.ExperimentConfig, logger *logrus.Logger) (*ExperimentService, error) {
	weights := map[string]models.ScoringWeights{
		VariantA: {Rating: cfg.VariantA.Rating, Cuisine: cfg.VariantA.Cuisine, Price: cfg.VariantA.Price},
		VariantB: {Rating: cfg.VariantB.Rating, Cuisine: cfg.VariantB.Cuisine, Price: cfg.VariantB.Price},
	}

	for variant, w := range weights {
		if w.Rating < 0 || w.Cuisine < 0 || w.Price < 0 {
			return nil, fmt.Errorf("variant %s has a negative weight", variant)
		}
		if math.Abs(w.Sum()-1.0) > 0.001 {
			return nil, fmt.Errorf("variant %s weights must sum to 1.0, got %.3f", variant, w.Sum())
		}
	}
	if weights[VariantA] == weights[VariantB] {
		return nil, fmt.Errorf("variants A and B must differ in at least one weight")
	}

	threshold := cfg.WinnerThreshold
	if threshold <= 0 {
		threshold = 5.0
	}

	return &ExperimentService{
		weights:         weights,
		winnerThreshold: threshold,
		logger:          logger,
		assignments:     make(map[string]string),
		counters: map[string]*variantCounters{
			VariantA: {},
			VariantB: {},
		},
		pick: func() string {
			if rand.Intn(2) == 0 {
				return VariantA
			}
			return VariantB
		},
	}, nil
}

// Assign returns the session's variant, assigning one 50/50 on the
// session's first request. Concurrent first requests for the same
// session observe a single assignment.
func (s *ExperimentService) Assign(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if variant, ok := s.assignments[sessionID]; ok {
		return variant
	}

	variant := s.pick()
	s.assignments[sessionID] = variant

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"variant":    variant,
	}).Debug("Assigned experiment variant")

	return variant
}

// WeightsFor returns the scoring weights of a variant; unknown labels
// fall back to the control variant.
func (s *ExperimentService) WeightsFor(variant string) models.ScoringWeights {
	if w, ok := s.weights[variant]; ok {
		return w
	}
	return s.weights[VariantA]
}

// RecordSearch bumps the per-variant search counter.
func (s *ExperimentService) RecordSearch(variant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[variant]; ok {
		c.searches++
	}
}

// RecordFeedback bumps the positive or negative feedback counter for a
// variant. Unknown variant labels are ignored.
func (s *ExperimentService) RecordFeedback(variant string, isPositive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[variant]
	if !ok {
		return
	}
	polarity := "negative"
	if isPositive {
		c.positive++
		polarity = "positive"
	} else {
		c.negative++
	}
	feedbackTotal.WithLabelValues(variant, polarity).Inc()
}

// Results returns per-variant stats plus the naive winner: the variant
// with the higher satisfaction rate, declared only when both variants
// have at least one feedback event and the absolute gap is at or above
// the threshold. No significance testing is applied, so small samples
// can flip the winner; callers should treat it as directional only.
func (s *ExperimentService) Results() ExperimentResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := ExperimentResults{Variants: make(map[string]VariantStats, 2)}
	rates := make(map[string]float64, 2)
	totals := make(map[string]int64, 2)

	for _, variant := range []string{VariantA, VariantB} {
		c := s.counters[variant]
		total := c.positive + c.negative
		rate := 0.0
		if total > 0 {
			rate = float64(c.positive) / float64(total) * 100
		}
		results.Variants[variant] = VariantStats{
			Searches:         c.searches,
			FeedbackPositive: c.positive,
			FeedbackNegative: c.negative,
			TotalFeedback:    total,
			SatisfactionRate: rate,
		}
		rates[variant] = rate
		totals[variant] = total
	}

	if totals[VariantA] > 0 && totals[VariantB] > 0 &&
		math.Abs(rates[VariantA]-rates[VariantB]) >= s.winnerThreshold {
		winner := VariantA
		if rates[VariantB] > rates[VariantA] {
			winner = VariantB
		}
		results.Winner = &winner
	}

	return results
}
