package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/pkg/models"
)

// DefaultCacheTTL is how long a ranked result stays servable.
const DefaultCacheTTL = 300 * time.Second

// CacheStats is the snapshot exposed on the admin surface.
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type cacheEntry struct {
	result    *models.RecommendationResult
	createdAt time.Time
}

// QueryCache maps a query fingerprint to a previously computed ranked
// result. Entries expire lazily at lookup time; there is no background
// sweep and no persistence across restarts.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	hits    int64
	misses  int64
	logger  *logrus.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewQueryCache creates a cache with the given TTL; zero or negative
// falls back to DefaultCacheTTL.
func NewQueryCache(ttl time.Duration, logger *logrus.Logger) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QueryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// fingerprintPayload is the canonical encoding hashed into a cache key.
// Set-like fields are sorted so preference equality is order-independent,
// and the variant is part of the identity so the two weight
// configurations never collide.
type fingerprintPayload struct {
	Location   string   `json:"location"`
	PriceRange []string `json:"price_range"`
	MinRating  float64  `json:"min_rating"`
	Cuisines   []string `json:"cuisines"`
	FreeText   string   `json:"free_text"`
	Limit      int      `json:"limit"`
	Variant    string   `json:"variant"`
}

// Fingerprint derives the deterministic cache key for a preference under
// a scoring variant.
func Fingerprint(pref *models.Preference, variant string) string {
	payload := fingerprintPayload{
		Location:   pref.Location,
		PriceRange: sortedCopy(pref.PriceRange),
		MinRating:  pref.MinRating,
		Cuisines:   sortedCopy(pref.Cuisines),
		FreeText:   pref.FreeTextPreferences,
		Limit:      pref.Limit,
		Variant:    variant,
	}

	// Field order of the struct is fixed, so the encoding is stable.
	encoded, _ := json.Marshal(payload)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:8])
}

func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

// Get returns the cached result for a fingerprint, or nil on a miss.
// Expired entries are removed and counted as misses.
func (c *QueryCache) Get(fingerprint string) *models.RecommendationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if ok && c.now().Sub(entry.createdAt) < c.ttl {
		c.hits++
		cacheHitsTotal.Inc()
		return entry.result
	}

	if ok {
		delete(c.entries, fingerprint)
	}
	c.misses++
	cacheMissesTotal.Inc()
	return nil
}

// Put stores a computed result under its fingerprint.
func (c *QueryCache) Put(fingerprint string, result *models.RecommendationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = cacheEntry{result: result, createdAt: c.now()}
}

// Stats returns a consistent snapshot of size and hit/miss counters.
func (c *QueryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Clear drops every entry and resets the counters.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.hits = 0
	c.misses = 0
}
