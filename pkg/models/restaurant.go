package models

// PriceBuckets lists the four price tiers in ascending order of cost.
// Tier distance between two buckets is the difference of their indices.
var PriceBuckets = []string{"$", "$$", "$$$", "$$$$"}

// PriceBucketIndex returns the ordinal of a price bucket, or -1 when the
// bucket is not one of the four known tiers.
func PriceBucketIndex(bucket string) int {
	for i, b := range PriceBuckets {
		if b == bucket {
			return i
		}
	}
	return -1
}

// Restaurant is one row of the corpus. Immutable after load; the row
// index in the corpus matches the row index of its embedding vector.
type Restaurant struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Locality      string   `json:"locality"`
	PriceBucket   string   `json:"price_bucket"`
	AvgCostForTwo float64  `json:"avg_cost_for_two"`
	AvgRating     float64  `json:"avg_rating"`
	Cuisines      []string `json:"cuisines"`
}

// Preference is a validated recommendation request. Location is the only
// required field; everything else narrows or reweights the result set.
type Preference struct {
	Location            string   `json:"location" binding:"required,min=1"`
	PriceRange          []string `json:"price_range,omitempty" binding:"omitempty,dive,pricebucket"`
	MinRating           float64  `json:"min_rating" binding:"omitempty,gte=0,lte=5"`
	Cuisines            []string `json:"cuisines,omitempty"`
	FreeTextPreferences string   `json:"free_text_preferences,omitempty"`
	Limit               int      `json:"limit" binding:"omitempty,min=1,max=50"`
}

// ScoringWeights is one variant's weighting of the heuristic score
// components. The three weights must sum to 1.0.
type ScoringWeights struct {
	Rating  float64 `json:"rating"`
	Cuisine float64 `json:"cuisine"`
	Price   float64 `json:"price"`
}

// Sum returns the total of the three weights.
func (w ScoringWeights) Sum() float64 {
	return w.Rating + w.Cuisine + w.Price
}
