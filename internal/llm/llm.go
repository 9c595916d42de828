// Package llm provides the reasoning-service client used to re-rank and
// annotate candidate restaurants.
package llm

import "context"

// CandidateSummary is the bounded view of a candidate sent to the
// reasoning service; only the fields the model needs to rank.
type CandidateSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceBucket string   `json:"price_bucket"`
	AvgRating   float64  `json:"avg_rating"`
	Cuisines    []string `json:"cuisines"`
}

// PreferenceSummary mirrors the user's normalized preferences for the
// prompt.
type PreferenceSummary struct {
	Location            string   `json:"location"`
	PriceRange          []string `json:"price_range,omitempty"`
	MinRating           float64  `json:"min_rating,omitempty"`
	Cuisines            []string `json:"cuisines,omitempty"`
	FreeTextPreferences string   `json:"free_text_preferences,omitempty"`
}

// RankedCandidate is one entry of the reasoning service's answer.
type RankedCandidate struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Reasoner asks an external model to order candidates from best to worst
// match and explain each. Implementations make a single bounded attempt;
// retry policy, if any, lives in the transport.
type Reasoner interface {
	RankAndExplain(ctx context.Context, prefs PreferenceSummary, candidates []CandidateSummary) ([]RankedCandidate, error)
}
