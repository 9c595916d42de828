package models

// Candidate is a restaurant flowing through the scoring pipeline.
// SemanticScore is only populated when free-text preferences were
// supplied; Reason and LLMRank only after a successful explanation pass.
type Candidate struct {
	Restaurant     *Restaurant `json:"restaurant"`
	HeuristicScore float64     `json:"heuristic_score"`
	SemanticScore  *float64    `json:"semantic_score,omitempty"`
	CombinedScore  float64     `json:"combined_score"`
	Reason         *string     `json:"reason,omitempty"`
	LLMRank        *int        `json:"llm_rank,omitempty"`
}

// RecommendationItem is one entry of the response payload.
type RecommendationItem struct {
	Restaurant *Restaurant `json:"restaurant"`
	Score      float64     `json:"score"`
	Reason     *string     `json:"reason,omitempty"`
	Variant    string      `json:"variant"`
}

// RecommendationResult is the orchestrator's full answer for one request.
// TotalCandidates counts matches before pool truncation.
type RecommendationResult struct {
	Recommendations []RecommendationItem `json:"recommendations"`
	TotalCandidates int                  `json:"total_candidates"`
}

// FeedbackRequest records a thumbs up/down on a recommendation.
type FeedbackRequest struct {
	RestaurantID  string `json:"restaurant_id" binding:"required,min=1"`
	QueryLocation string `json:"query_location" binding:"required,min=1"`
	IsPositive    *bool  `json:"is_positive" binding:"required"`
	Variant       string `json:"variant,omitempty" binding:"omitempty,oneof=A B"`
}

type FeedbackResponse struct {
	Status        string `json:"status"`
	TotalFeedback int    `json:"total_feedback"`
}
