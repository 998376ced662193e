package observer

import (
	"sync"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// Observer collects pipeline metrics across runs
type Observer struct {
	evaluations []evaluation
	runs        []runRecord
	approvals   map[domain.ApprovalStatus]int
	mu          sync.RWMutex
}

type evaluation struct {
	Platform    string
	Score       float64
	Fallback    bool
	EvaluatedAt time.Time
}

type runRecord struct {
	RunID      string
	Iterations int
	Improved   bool
	Duration   time.Duration
}

// Metrics holds aggregated pipeline metrics
type Metrics struct {
	TotalEvaluations    int
	FallbackEvaluations int
	AvgScore            float64
	TotalRuns           int
	ImprovedRuns        int
	AvgIterations       float64
	AvgRunDuration      time.Duration
	ApprovalCounts      map[domain.ApprovalStatus]int
}

// New creates a new Observer
func New() *Observer {
	return &Observer{
		approvals: make(map[domain.ApprovalStatus]int),
	}
}

// RecordEvaluation records a scoring event
func (o *Observer) RecordEvaluation(platform string, result domain.EvaluationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.evaluations = append(o.evaluations, evaluation{
		Platform:    platform,
		Score:       result.OverallScore,
		Fallback:    result.IsFallback(),
		EvaluatedAt: result.EvaluatedAt,
	})
}

// RecordRun records a completed regeneration run
func (o *Observer) RecordRun(runID string, iterations int, improved bool, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.runs = append(o.runs, runRecord{
		RunID:      runID,
		Iterations: iterations,
		Improved:   improved,
		Duration:   duration,
	})
}

// RecordApproval records the final status of an approval request
func (o *Observer) RecordApproval(status domain.ApprovalStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.approvals[status]++
}

// GetMetrics returns aggregated metrics
func (o *Observer) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	metrics := Metrics{
		ApprovalCounts: make(map[domain.ApprovalStatus]int, len(o.approvals)),
	}

	var scoreSum float64
	for _, e := range o.evaluations {
		metrics.TotalEvaluations++
		scoreSum += e.Score
		if e.Fallback {
			metrics.FallbackEvaluations++
		}
	}
	if metrics.TotalEvaluations > 0 {
		metrics.AvgScore = scoreSum / float64(metrics.TotalEvaluations)
	}

	var iterSum int
	var durationSum time.Duration
	for _, r := range o.runs {
		metrics.TotalRuns++
		iterSum += r.Iterations
		durationSum += r.Duration
		if r.Improved {
			metrics.ImprovedRuns++
		}
	}
	if metrics.TotalRuns > 0 {
		metrics.AvgIterations = float64(iterSum) / float64(metrics.TotalRuns)
		metrics.AvgRunDuration = durationSum / time.Duration(metrics.TotalRuns)
	}

	for status, count := range o.approvals {
		metrics.ApprovalCounts[status] = count
	}

	return metrics
}

// RecentFallbackRate returns the share of evaluations since the cutoff that
// used the heuristic fallback. Returns 0 when nothing was evaluated.
func (o *Observer) RecentFallbackRate(since time.Duration) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	cutoff := time.Now().Add(-since)
	var total, fallback int

	for _, e := range o.evaluations {
		if e.EvaluatedAt.After(cutoff) {
			total++
			if e.Fallback {
				fallback++
			}
		}
	}

	if total == 0 {
		return 0
	}
	return float64(fallback) / float64(total)
}
