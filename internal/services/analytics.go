package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SearchEvent is the analytics record emitted once per recommendation
// request, cache hit or miss.
type SearchEvent struct {
	ID             uuid.UUID `json:"id"`
	Location       string    `json:"location"`
	PriceRange     []string  `json:"price_range,omitempty"`
	MinRating      float64   `json:"min_rating,omitempty"`
	Cuisines       []string  `json:"cuisines,omitempty"`
	FreeText       bool      `json:"free_text"`
	Variant        string    `json:"variant"`
	CacheHit       bool      `json:"cache_hit"`
	ResultCount    int       `json:"result_count"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// FeedbackRecord is one thumbs up/down event.
type FeedbackRecord struct {
	RestaurantID  string    `json:"restaurant_id"`
	QueryLocation string    `json:"query_location"`
	IsPositive    bool      `json:"is_positive"`
	Variant       string    `json:"variant,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NameCount is a name with an occurrence count, used in top-N listings.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FeedbackStats summarizes the recorded feedback.
type FeedbackStats struct {
	Total            int     `json:"total"`
	Positive         int     `json:"positive"`
	Negative         int     `json:"negative"`
	SatisfactionRate float64 `json:"satisfaction_rate"`
}

// AnalyticsSummary is the admin analytics payload.
type AnalyticsSummary struct {
	TotalSearches     int                `json:"total_searches"`
	AvgResponseTimeMS float64            `json:"avg_response_time_ms"`
	TopLocations      []NameCount        `json:"top_locations"`
	TopCuisines       []NameCount        `json:"top_cuisines"`
	PriceRangeUsage   map[string]int     `json:"price_range_usage"`
	FilterUsage       map[string]float64 `json:"filter_usage"`
	CacheHits         int                `json:"cache_hits"`
	CacheMisses       int                `json:"cache_misses"`
	FeedbackSummary   FeedbackStats      `json:"feedback_summary"`
}

// EventPublisher forwards search events to an external sink. Publish
// failures are logged and dropped; analytics must never fail a request.
type EventPublisher interface {
	PublishSearchEvent(ctx context.Context, event SearchEvent) error
}

// AnalyticsService keeps the in-process event and feedback logs and,
// when configured, mirrors search events to an external publisher.
type AnalyticsService struct {
	publisher EventPublisher
	logger    *logrus.Logger

	mu       sync.Mutex
	events   []SearchEvent
	feedback []FeedbackRecord
}

// NewAnalyticsService creates the service; publisher may be nil.
func NewAnalyticsService(publisher EventPublisher, logger *logrus.Logger) *AnalyticsService {
	return &AnalyticsService{
		publisher: publisher,
		logger:    logger,
	}
}

// RecordSearch stores a search event and forwards it to the publisher
// in the background. Fire-and-forget from the caller's perspective.
func (a *AnalyticsService) RecordSearch(event SearchEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	a.mu.Lock()
	a.events = append(a.events, event)
	a.mu.Unlock()

	if a.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.publisher.PublishSearchEvent(ctx, event); err != nil {
			a.logger.WithError(err).Warn("Failed to publish search event")
		}
	}()
}

// RecordFeedback appends a feedback record and returns the new total.
func (a *AnalyticsService) RecordFeedback(record FeedbackRecord) int {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.feedback = append(a.feedback, record)
	return len(a.feedback)
}

// FeedbackStats summarizes recorded feedback.
func (a *AnalyticsService) FeedbackStats() FeedbackStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feedbackStatsLocked()
}

func (a *AnalyticsService) feedbackStatsLocked() FeedbackStats {
	stats := FeedbackStats{Total: len(a.feedback)}
	for _, f := range a.feedback {
		if f.IsPositive {
			stats.Positive++
		} else {
			stats.Negative++
		}
	}
	if stats.Total > 0 {
		stats.SatisfactionRate = float64(stats.Positive) / float64(stats.Total) * 100
	}
	return stats
}

// Summary aggregates the event log into the admin analytics payload.
func (a *AnalyticsService) Summary() AnalyticsSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	summary := AnalyticsSummary{
		TotalSearches:   len(a.events),
		PriceRangeUsage: make(map[string]int),
		FilterUsage:     make(map[string]float64),
		FeedbackSummary: a.feedbackStatsLocked(),
	}

	if len(a.events) == 0 {
		return summary
	}

	var totalTime float64
	locations := make(map[string]int)
	cuisines := make(map[string]int)
	filterCounts := map[string]int{"price_range": 0, "cuisine": 0, "rating": 0, "free_text": 0}

	for _, e := range a.events {
		totalTime += e.ResponseTimeMS
		locations[e.Location]++
		for _, c := range e.Cuisines {
			cuisines[c]++
		}
		for _, p := range e.PriceRange {
			summary.PriceRangeUsage[p]++
		}
		if len(e.PriceRange) > 0 {
			filterCounts["price_range"]++
		}
		if len(e.Cuisines) > 0 {
			filterCounts["cuisine"]++
		}
		if e.MinRating > 0 {
			filterCounts["rating"]++
		}
		if e.FreeText {
			filterCounts["free_text"]++
		}
		if e.CacheHit {
			summary.CacheHits++
		} else {
			summary.CacheMisses++
		}
	}

	total := float64(len(a.events))
	summary.AvgResponseTimeMS = totalTime / total
	for name, count := range filterCounts {
		summary.FilterUsage[name] = float64(count) / total * 100
	}
	summary.TopLocations = topN(locations, 10)
	summary.TopCuisines = topN(cuisines, 10)

	return summary
}

func topN(counts map[string]int, n int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
