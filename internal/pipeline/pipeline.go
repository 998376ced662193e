package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/content-pipeline/internal/approval"
	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/observer"
	"github.com/hochfrequenz/content-pipeline/internal/regenerator"
	"github.com/hochfrequenz/content-pipeline/internal/store"
)

// ErrPaused is returned when the pipeline's pause switch is set
var ErrPaused = errors.New("pipeline is paused")

// Drafter writes the initial candidate text for a topic and platform
type Drafter interface {
	Draft(ctx context.Context, topic, platform string, profile *brand.Profile) (string, error)
}

// ProfileSource supplies the current brand profile. Implemented by the
// brand watcher so hot reloads reach in-flight runs' successors.
type ProfileSource interface {
	Profile() *brand.Profile
}

// PlatformResult is the outcome of one platform's leg of a run
type PlatformResult struct {
	Platform   string
	Candidate  domain.ContentCandidate
	Evaluation domain.EvaluationResult
	Decision   approval.Decision
	Err        error
}

// Approved reports whether this leg ended in publishable content
func (r PlatformResult) Approved() bool {
	return r.Err == nil && r.Decision.Approved
}

// RunResult aggregates a full pipeline run across platforms
type RunResult struct {
	RunID       string
	Topic       string
	StartedAt   time.Time
	Duration    time.Duration
	Results     []PlatformResult
	AllApproved bool
}

// Coordinator drives topic drafts through evaluation, regeneration, and
// human approval, one independent leg per platform.
type Coordinator struct {
	store           *store.Store
	regen           *regenerator.Regenerator
	machine         *approval.Machine
	obs             *observer.Observer
	profiles        ProfileSource
	drafter         Drafter
	approvalTimeout time.Duration
	log             *slog.Logger
	now             func() time.Time
}

// New creates a Coordinator. The drafter may be nil when callers always
// supply their own draft text.
func New(st *store.Store, regen *regenerator.Regenerator, machine *approval.Machine,
	obs *observer.Observer, profiles ProfileSource, drafter Drafter,
	approvalTimeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		store:           st,
		regen:           regen,
		machine:         machine,
		obs:             obs,
		profiles:        profiles,
		drafter:         drafter,
		approvalTimeout: approvalTimeout,
		log:             log,
		now:             time.Now,
	}
}

// Run processes a topic for the given platforms concurrently. Platform legs
// are independent: one leg's failure or rejection never interrupts another.
// The run is refused up front when the pipeline is paused. drafts may carry
// pre-written text per platform; platforms without an entry go through the
// drafter.
func (c *Coordinator) Run(ctx context.Context, topic string, platforms []string, drafts map[string]string) (RunResult, error) {
	control, err := c.store.GetControlState()
	if err != nil {
		return RunResult{}, fmt.Errorf("reading control state: %w", err)
	}
	if control.Paused() {
		return RunResult{}, fmt.Errorf("run refused (paused by %s): %w", control.UpdatedBy, ErrPaused)
	}
	if len(platforms) == 0 {
		return RunResult{}, fmt.Errorf("no platforms to run")
	}

	result := RunResult{
		RunID:     uuid.NewString(),
		Topic:     topic,
		StartedAt: c.now(),
		Results:   make([]PlatformResult, len(platforms)),
	}

	c.log.Info("pipeline run starting", "run_id", result.RunID, "topic", topic, "platforms", platforms)

	g, ctx := errgroup.WithContext(ctx)
	for i, platform := range platforms {
		g.Go(func() error {
			result.Results[i] = c.runPlatform(ctx, result.RunID, topic, platform, drafts[platform])
			return nil
		})
	}
	// Legs report their own errors through PlatformResult.Err
	_ = g.Wait()

	result.Duration = c.now().Sub(result.StartedAt)

	result.AllApproved = true
	for _, leg := range result.Results {
		if !leg.Approved() {
			result.AllApproved = false
			break
		}
	}

	sort.Slice(result.Results, func(a, b int) bool {
		return result.Results[a].Platform < result.Results[b].Platform
	})

	c.log.Info("pipeline run finished", "run_id", result.RunID,
		"all_approved", result.AllApproved, "duration", result.Duration)

	return result, nil
}

// runPlatform is one platform's leg: draft, improve until the gate passes,
// then wait for a reviewer.
func (c *Coordinator) runPlatform(ctx context.Context, runID, topic, platform, draft string) PlatformResult {
	leg := PlatformResult{Platform: platform}
	profile := c.profiles.Profile()
	start := c.now()

	text := draft
	if text == "" {
		if c.drafter == nil {
			leg.Err = fmt.Errorf("no draft for %s and no drafter configured", platform)
			return leg
		}
		var err error
		text, err = c.drafter.Draft(ctx, topic, platform, profile)
		if err != nil {
			leg.Err = fmt.Errorf("drafting for %s: %w", platform, err)
			return leg
		}
	}

	cand := domain.ContentCandidate{Platform: platform, Text: text}
	outcome, err := c.regen.Run(ctx, cand, profile)
	if err != nil {
		leg.Err = fmt.Errorf("regenerating for %s: %w", platform, err)
		return leg
	}
	leg.Candidate = outcome.Candidate
	leg.Evaluation = outcome.Evaluation

	c.obs.RecordEvaluation(platform, outcome.Evaluation)
	c.obs.RecordRun(runID, outcome.Iterations, outcome.Improved, c.now().Sub(start))

	decision, err := c.machine.RequestApproval(ctx, outcome.Candidate, outcome.Evaluation.OverallScore, c.approvalTimeout)
	if err != nil {
		leg.Err = fmt.Errorf("awaiting approval for %s: %w", platform, err)
		return leg
	}
	leg.Decision = decision
	c.obs.RecordApproval(decision.Status)

	// Reviewer edits replace the candidate text wholesale
	if decision.Status == domain.ApprovalEdited {
		leg.Candidate = leg.Candidate.WithRevision(decision.EditedText)
	}

	if err := c.store.SaveCandidate(store.CandidateRecord{
		RunID:          runID,
		Topic:          topic,
		Platform:       platform,
		Text:           leg.Candidate.Text,
		Score:          leg.Evaluation.OverallScore,
		Improved:       outcome.Improved,
		ApprovalStatus: decision.Status,
	}); err != nil {
		c.log.Warn("candidate history write failed", "run_id", runID, "platform", platform, "error", err)
	}

	return leg
}

// Pause sets the pause switch so new runs are refused
func (c *Coordinator) Pause(actor string) error {
	if err := c.store.SetControlState(domain.PipelinePaused, actor); err != nil {
		return err
	}
	c.log.Info("pipeline paused", "actor", actor)
	return nil
}

// Resume clears the pause switch
func (c *Coordinator) Resume(actor string) error {
	if err := c.store.SetControlState(domain.PipelineActive, actor); err != nil {
		return err
	}
	c.log.Info("pipeline resumed", "actor", actor)
	return nil
}
