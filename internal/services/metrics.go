package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tablerank_searches_total",
		Help: "Recommendation searches served, by scoring variant.",
	}, []string{"variant"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tablerank_search_duration_seconds",
		Help:    "End-to-end recommendation latency.",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tablerank_cache_hits_total",
		Help: "Query cache hits.",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tablerank_cache_misses_total",
		Help: "Query cache misses.",
	})

	explainerFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tablerank_explainer_fallbacks_total",
		Help: "Explanation attempts that fell back to heuristic order.",
	})

	feedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tablerank_feedback_total",
		Help: "Feedback events recorded, by variant and polarity.",
	}, []string{"variant", "polarity"})
)
