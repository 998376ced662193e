package observer

import (
	"testing"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

func TestGetMetricsAggregatesEvaluations(t *testing.T) {
	o := New()

	o.RecordEvaluation("twitter", domain.EvaluationResult{
		OverallScore: 0.8,
		ModelUsed:    "gpt-4o-mini",
		EvaluatedAt:  time.Now(),
	})
	o.RecordEvaluation("linkedin", domain.EvaluationResult{
		OverallScore: 0.4,
		ModelUsed:    domain.FallbackModel,
		EvaluatedAt:  time.Now(),
	})

	m := o.GetMetrics()
	if m.TotalEvaluations != 2 {
		t.Errorf("TotalEvaluations = %d, want 2", m.TotalEvaluations)
	}
	if m.FallbackEvaluations != 1 {
		t.Errorf("FallbackEvaluations = %d, want 1", m.FallbackEvaluations)
	}
	if m.AvgScore != 0.6 {
		t.Errorf("AvgScore = %v, want 0.6", m.AvgScore)
	}
}

func TestGetMetricsAggregatesRuns(t *testing.T) {
	o := New()

	o.RecordRun("run-1", 3, true, 2*time.Second)
	o.RecordRun("run-2", 1, false, 4*time.Second)

	m := o.GetMetrics()
	if m.TotalRuns != 2 {
		t.Errorf("TotalRuns = %d, want 2", m.TotalRuns)
	}
	if m.ImprovedRuns != 1 {
		t.Errorf("ImprovedRuns = %d, want 1", m.ImprovedRuns)
	}
	if m.AvgIterations != 2 {
		t.Errorf("AvgIterations = %v, want 2", m.AvgIterations)
	}
	if m.AvgRunDuration != 3*time.Second {
		t.Errorf("AvgRunDuration = %v, want 3s", m.AvgRunDuration)
	}
}

func TestApprovalCounts(t *testing.T) {
	o := New()

	o.RecordApproval(domain.ApprovalApproved)
	o.RecordApproval(domain.ApprovalApproved)
	o.RecordApproval(domain.ApprovalRejected)
	o.RecordApproval(domain.ApprovalTimeout)

	m := o.GetMetrics()
	if m.ApprovalCounts[domain.ApprovalApproved] != 2 {
		t.Errorf("approved count = %d, want 2", m.ApprovalCounts[domain.ApprovalApproved])
	}
	if m.ApprovalCounts[domain.ApprovalRejected] != 1 {
		t.Errorf("rejected count = %d, want 1", m.ApprovalCounts[domain.ApprovalRejected])
	}
	if m.ApprovalCounts[domain.ApprovalTimeout] != 1 {
		t.Errorf("timeout count = %d, want 1", m.ApprovalCounts[domain.ApprovalTimeout])
	}
}

func TestRecentFallbackRate(t *testing.T) {
	o := New()

	o.RecordEvaluation("twitter", domain.EvaluationResult{
		OverallScore: 0.5,
		ModelUsed:    domain.FallbackModel,
		EvaluatedAt:  time.Now(),
	})
	o.RecordEvaluation("twitter", domain.EvaluationResult{
		OverallScore: 0.7,
		ModelUsed:    "gpt-4o-mini",
		EvaluatedAt:  time.Now(),
	})
	// Outside the window
	o.RecordEvaluation("twitter", domain.EvaluationResult{
		OverallScore: 0.3,
		ModelUsed:    domain.FallbackModel,
		EvaluatedAt:  time.Now().Add(-2 * time.Hour),
	})

	if got := o.RecentFallbackRate(time.Hour); got != 0.5 {
		t.Errorf("RecentFallbackRate(1h) = %v, want 0.5", got)
	}
}

func TestEmptyObserver(t *testing.T) {
	o := New()

	m := o.GetMetrics()
	if m.TotalEvaluations != 0 || m.TotalRuns != 0 {
		t.Errorf("empty observer metrics = %+v, want zeros", m)
	}
	if got := o.RecentFallbackRate(time.Hour); got != 0 {
		t.Errorf("RecentFallbackRate on empty observer = %v, want 0", got)
	}
}
