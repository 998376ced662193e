package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/resilience"
)

// judgeFunc adapts a function to the Judge interface
type judgeFunc func(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error)

func (f judgeFunc) Score(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error) {
	return f(ctx, content, platform, profile, extra)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Base: 2}
}

func testProfile() *brand.Profile {
	return &brand.Profile{
		Name:     "caregiver-support",
		Keywords: []string{"caregivers", "support", "time"},
	}
}

func newTestEvaluator(judge Judge) *Evaluator {
	return New(judge, resilience.NewBreakerSet(5, time.Minute), fastRetry(), DefaultWeights(), testLogger())
}

func TestEvaluate_UsesJudge(t *testing.T) {
	judge := judgeFunc(func(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error) {
		return Judgment{Score: 0.82, Explanation: "on brand", Model: "gpt-4o-mini"}, nil
	})

	res := newTestEvaluator(judge).Evaluate(context.Background(), "hello", "twitter", testProfile(), "")
	if res.OverallScore != 0.82 {
		t.Errorf("OverallScore = %v, want 0.82", res.OverallScore)
	}
	if res.ModelUsed != "gpt-4o-mini" {
		t.Errorf("ModelUsed = %q, want gpt-4o-mini", res.ModelUsed)
	}
}

func TestEvaluate_ClampsJudgeScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{7.5, 1},  // judge answered on a 0-10 scale
		{-0.2, 0}, // or below zero
		{0.5, 0.5},
	}
	for _, tt := range tests {
		judge := judgeFunc(func(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error) {
			return Judgment{Score: tt.raw, Model: "m"}, nil
		})
		res := newTestEvaluator(judge).Evaluate(context.Background(), "x", "twitter", testProfile(), "")
		if res.OverallScore != tt.want {
			t.Errorf("raw %v: OverallScore = %v, want %v", tt.raw, res.OverallScore, tt.want)
		}
	}
}

func TestEvaluate_TotalWhenJudgeAlwaysFails(t *testing.T) {
	judge := judgeFunc(func(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error) {
		return Judgment{}, errors.New("model timeout")
	})
	e := newTestEvaluator(judge)

	for i := 0; i < 10; i++ {
		res := e.Evaluate(context.Background(), "Caregivers deserve support! #care", "twitter", testProfile(), "")
		if res.OverallScore < 0 || res.OverallScore > 1 {
			t.Fatalf("OverallScore = %v, want within [0,1]", res.OverallScore)
		}
		if res.ModelUsed != domain.FallbackModel {
			t.Fatalf("ModelUsed = %q, want %q", res.ModelUsed, domain.FallbackModel)
		}
	}
}

func TestEvaluate_FallsBackWhenCircuitOpen(t *testing.T) {
	judge := judgeFunc(func(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error) {
		return Judgment{}, errors.New("down")
	})
	breakers := resilience.NewBreakerSet(1, time.Hour)
	e := New(judge, breakers, fastRetry(), DefaultWeights(), testLogger())

	// First call trips the breaker, second is rejected without a judge call
	e.Evaluate(context.Background(), "x", "twitter", testProfile(), "")
	res := e.Evaluate(context.Background(), "x", "twitter", testProfile(), "")

	if res.ModelUsed != domain.FallbackModel {
		t.Errorf("ModelUsed = %q, want fallback", res.ModelUsed)
	}
	if state, _ := breakers.Get("evaluator").Snapshot(); state != resilience.StateOpen {
		t.Errorf("breaker state = %q, want open", state)
	}
}

func TestEvaluate_NilJudgeUsesHeuristic(t *testing.T) {
	e := newTestEvaluator(nil)
	res := e.Evaluate(context.Background(), "anything", "twitter", testProfile(), "")
	if res.ModelUsed != domain.FallbackModel {
		t.Errorf("ModelUsed = %q, want fallback", res.ModelUsed)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	e := newTestEvaluator(nil)
	content := "Caregivers, our new feature saves you time. Try it today! #CaregiverSupport"

	first := e.Evaluate(context.Background(), content, "twitter", testProfile(), "")
	for i := 0; i < 5; i++ {
		again := e.Evaluate(context.Background(), content, "twitter", testProfile(), "")
		if again.OverallScore != first.OverallScore {
			t.Fatalf("heuristic score varied: %v then %v", first.OverallScore, again.OverallScore)
		}
	}
	if !strings.HasPrefix(first.Explanation, "heuristic:") {
		t.Errorf("Explanation = %q, want heuristic breakdown", first.Explanation)
	}
}

func TestLengthScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    float64
	}{
		{"empty", "", 280, 0},
		{"in range", strings.Repeat("a", 200), 280, 1},
		{"at limit", strings.Repeat("a", 280), 280, 1},
		{"half limit", strings.Repeat("a", 140), 280, 1},
		{"under half", strings.Repeat("a", 70), 280, 0.5},
		{"double limit", strings.Repeat("a", 560), 280, 0},
	}
	for _, tt := range tests {
		if got := lengthScore(tt.content, tt.limit); got != tt.want {
			t.Errorf("%s: lengthScore = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	keywords := []string{"caregivers", "support", "time"}

	if got := keywordScore("Caregivers need SUPPORT", keywords); got != 2.0/3.0 {
		t.Errorf("keywordScore = %v, want 2/3", got)
	}
	if got := keywordScore("nothing relevant", keywords); got != 0 {
		t.Errorf("keywordScore = %v, want 0", got)
	}
	if got := keywordScore("anything", nil); got != 0.5 {
		t.Errorf("keywordScore with no keywords = %v, want 0.5", got)
	}
}

func TestEngagementScore(t *testing.T) {
	tests := []struct {
		content string
		want    float64
	}{
		{"plain text", 0},
		{"with #hashtag", 0.4},
		{"excited!", 0.3},
		{"question?", 0.3},
		{"fire \U0001F525", 0.3},
		{"all three! #tag \U0001F389", 1.0},
	}
	for _, tt := range tests {
		got := engagementScore(tt.content)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("engagementScore(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestHeuristic_BannedPhrasePenalty(t *testing.T) {
	e := newTestEvaluator(nil)
	profile := testProfile()
	content := "Supporting caregivers with more time! #care"

	clean := e.heuristic(content, "twitter", profile)

	profile.BannedPhrases = []string{"more time"}
	penalized := e.heuristic(content, "twitter", profile)

	if penalized.OverallScore != clean.OverallScore/2 {
		t.Errorf("penalized score = %v, want half of %v", penalized.OverallScore, clean.OverallScore)
	}
	if !strings.Contains(penalized.Explanation, "banned phrase") {
		t.Errorf("explanation = %q, want banned phrase note", penalized.Explanation)
	}
}
