package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/resilience"
)

// Judgment is the primary scorer's answer
type Judgment struct {
	Score       float64
	Explanation string
	Model       string
}

// Judge scores content against a brand profile using an external model
type Judge interface {
	Score(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (Judgment, error)
}

// Weights combine the heuristic component scores
type Weights struct {
	Length     float64
	Keywords   float64
	Engagement float64
}

// DefaultWeights returns the standard heuristic weighting
func DefaultWeights() Weights {
	return Weights{Length: 0.4, Keywords: 0.35, Engagement: 0.25}
}

// Evaluator scores platform content. It always returns a result: when the
// model judge is unavailable the deterministic heuristic takes over.
type Evaluator struct {
	judge   Judge
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
	weights Weights
	log     *slog.Logger
	now     func() time.Time
}

// New creates an Evaluator. A nil judge skips straight to the heuristic.
func New(judge Judge, breakers *resilience.BreakerSet, retry resilience.RetryConfig, weights Weights, log *slog.Logger) *Evaluator {
	return &Evaluator{
		judge:   judge,
		breaker: breakers.Get("evaluator"),
		retry:   retry,
		weights: weights,
		log:     log,
		now:     time.Now,
	}
}

// errNoJudge routes judge-less evaluators straight to the heuristic
var errNoJudge = errors.New("no judge configured")

// Evaluate scores content for a platform. Any judge failure, including an
// open circuit, degrades to the heuristic scorer; the caller can tell by
// ModelUsed.
func (e *Evaluator) Evaluate(ctx context.Context, content, platform string, profile *brand.Profile, extra string) domain.EvaluationResult {
	score := resilience.WithFallback(
		func(ctx context.Context) (domain.EvaluationResult, error) {
			return e.judgeScore(ctx, content, platform, profile, extra)
		},
		func(context.Context) domain.EvaluationResult {
			return e.heuristic(content, platform, profile)
		},
	)

	result, _ := score(ctx)
	return result
}

// judgeScore runs the model judge behind the circuit breaker and retry policy
func (e *Evaluator) judgeScore(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (domain.EvaluationResult, error) {
	if e.judge == nil {
		return domain.EvaluationResult{}, errNoJudge
	}

	var judgment Judgment
	err := e.breaker.Do(func() error {
		return resilience.Retry(ctx, e.retry, func(ctx context.Context) error {
			var err error
			judgment, err = e.judge.Score(ctx, content, platform, profile, extra)
			return err
		})
	})
	if err != nil {
		e.log.Warn("model judge unavailable, scoring heuristically",
			"platform", platform, "error", err)
		return domain.EvaluationResult{}, err
	}

	return domain.EvaluationResult{
		OverallScore: domain.ClampScore(judgment.Score),
		Explanation:  judgment.Explanation,
		ModelUsed:    judgment.Model,
		EvaluatedAt:  e.now(),
	}, nil
}
