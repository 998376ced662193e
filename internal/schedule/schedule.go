package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hochfrequenz/content-pipeline/internal/config"
)

// Scheduler triggers pipeline runs on cron schedules
type Scheduler struct {
	jobs    map[string]config.JobConfig
	parser  cron.Parser
	lastRun map[string]time.Time
	running map[string]bool
	mu      sync.RWMutex
	log     *slog.Logger
}

// RunFunc executes one scheduled job
type RunFunc func(ctx context.Context, job config.JobConfig) error

// New creates a scheduler from job configs. Expressions are validated once
// here so a bad cron line fails at startup instead of silently never firing.
func New(jobs []config.JobConfig, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		jobs:    make(map[string]config.JobConfig),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun: make(map[string]time.Time),
		running: make(map[string]bool),
		log:     log,
	}

	for _, job := range jobs {
		if _, err := s.parser.Parse(job.Cron); err != nil {
			return nil, err
		}
		s.jobs[job.Name] = job
	}

	return s, nil
}

// NextRun returns the next scheduled run time for a job
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(job.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// ShouldRun reports whether a job is due and not already in flight
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[name]
	if !ok {
		return false
	}

	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(job.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	return time.Now().After(sched.Next(lastRun))
}

// MarkRunning marks a job as currently in flight
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete records a finished run
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// GetJob returns the config for a job
func (s *Scheduler) GetJob(name string) (config.JobConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[name]
	return job, ok
}

// ListJobs returns all job names
func (s *Scheduler) ListJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start runs the scheduler loop until the context is canceled. Due jobs run
// concurrently; a job still in flight is never started twice.
func (s *Scheduler) Start(ctx context.Context, run RunFunc) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name := range s.jobs {
				if !s.ShouldRun(name) {
					continue
				}
				job, _ := s.GetJob(name)
				s.MarkRunning(name)
				go func(job config.JobConfig) {
					defer s.MarkComplete(job.Name)
					s.log.Info("scheduled run starting", "job", job.Name, "topic", job.Topic)
					if err := run(ctx, job); err != nil {
						s.log.Error("scheduled run failed", "job", job.Name, "error", err)
					}
				}(job)
			}
		}
	}
}
