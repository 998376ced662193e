package regenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/evaluator"
)

// Improvement is the improver collaborator's answer
type Improvement struct {
	Text            string
	Explanation     string
	IssuesAddressed []string
}

// Improver produces an improved revision of content given reviewer feedback
type Improver interface {
	Improve(ctx context.Context, content, platform, feedback string) (Improvement, error)
}

// Config bounds the improvement loop
type Config struct {
	// MinimumScore is the quality gate; below it regeneration is mandatory
	MinimumScore float64
	// TargetScore stops the loop early once reached
	TargetScore float64
	// MaxIterations caps improvement calls per candidate
	MaxIterations int
	// PlateauGain is the minimum per-iteration gain worth continuing for
	PlateauGain float64
}

// DefaultConfig returns the standard loop bounds
func DefaultConfig() Config {
	return Config{
		MinimumScore:  0.6,
		TargetScore:   0.7,
		MaxIterations: 3,
		PlateauGain:   0.05,
	}
}

// Validate rejects configurations that cannot terminate sensibly
func (c Config) Validate() error {
	if c.MinimumScore < 0 || c.MinimumScore > 1 {
		return fmt.Errorf("minimum_score %v outside [0,1]", c.MinimumScore)
	}
	if c.TargetScore < 0 || c.TargetScore > 1 {
		return fmt.Errorf("target_score %v outside [0,1]", c.TargetScore)
	}
	if c.MinimumScore > c.TargetScore {
		return fmt.Errorf("minimum_score %v exceeds target_score %v", c.MinimumScore, c.TargetScore)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations %d must be at least 1", c.MaxIterations)
	}
	if c.PlateauGain < 0 {
		return fmt.Errorf("plateau_gain %v must not be negative", c.PlateauGain)
	}
	return nil
}

// Outcome is the loop's result: the candidate to ship and its evaluation
type Outcome struct {
	Candidate  domain.ContentCandidate
	Evaluation domain.EvaluationResult
	Improved   bool
	Iterations int
}

// Regenerator drives evaluate-improve-reevaluate cycles over one candidate
type Regenerator struct {
	eval     *evaluator.Evaluator
	improver Improver
	cfg      Config
	log      *slog.Logger
}

// New creates a Regenerator; the config is validated once here
func New(eval *evaluator.Evaluator, improver Improver, cfg Config, log *slog.Logger) (*Regenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Regenerator{eval: eval, improver: improver, cfg: cfg, log: log}, nil
}

// Run evaluates the candidate and, while it scores below the minimum, asks
// the improver for revisions. It stops on target, plateau, or the iteration
// cap, and never returns content rated worse than the input. An improver
// failure mid-loop ends the loop with the best candidate so far rather than
// an error.
func (r *Regenerator) Run(ctx context.Context, cand domain.ContentCandidate, profile *brand.Profile) (Outcome, error) {
	initial := r.eval.Evaluate(ctx, cand.Text, cand.Platform, profile, "")
	cand.RecordEvaluation(0, initial.OverallScore, initial.Explanation)

	if initial.OverallScore >= r.cfg.MinimumScore {
		return Outcome{Candidate: cand, Evaluation: initial}, nil
	}

	history := cand.History
	best := cand
	bestEval := initial
	current := cand
	prevScore := initial.OverallScore
	feedback := initial.Explanation
	iterations := 0

	for i := 1; i <= r.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			break
		}

		imp, err := r.improver.Improve(ctx, current.Text, current.Platform, feedback)
		if err != nil {
			r.log.Warn("improver failed, keeping best candidate so far",
				"platform", cand.Platform, "iteration", i, "error", err)
			break
		}
		iterations = i

		revised := current.WithRevision(imp.Text)
		eval := r.eval.Evaluate(ctx, revised.Text, revised.Platform, profile, imp.Explanation)
		history = append(history, domain.HistoryEntry{
			Iteration:   i,
			Score:       eval.OverallScore,
			Explanation: eval.Explanation,
		})

		if eval.OverallScore >= r.cfg.TargetScore {
			best = revised
			bestEval = eval
			break
		}
		if eval.OverallScore <= prevScore+r.cfg.PlateauGain {
			// Negligible or negative gain: discard this revision
			break
		}
		if eval.OverallScore > bestEval.OverallScore {
			best = revised
			bestEval = eval
		}

		prevScore = eval.OverallScore
		feedback = eval.Explanation
		current = revised
	}

	improved := bestEval.OverallScore > initial.OverallScore
	if !improved {
		// Nothing beat the original; revert to it
		best = cand
		bestEval = initial
	}
	best.History = history

	return Outcome{
		Candidate:  best,
		Evaluation: bestEval,
		Improved:   improved,
		Iterations: iterations,
	}, nil
}
