package domain

import "time"

// FallbackModel identifies scores produced by the heuristic scorer rather
// than the model judge
const FallbackModel = "fallback_heuristic"

// EvaluationResult scores one piece of content against a brand profile
type EvaluationResult struct {
	OverallScore float64   `json:"overall_score"`
	Explanation  string    `json:"explanation"`
	ModelUsed    string    `json:"model_used"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// IsFallback reports whether the heuristic scorer produced this result
func (r EvaluationResult) IsFallback() bool {
	return r.ModelUsed == FallbackModel
}

// ClampScore forces a score into [0,1] regardless of upstream scorer range
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
