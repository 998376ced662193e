package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// ErrAlreadyResolved is returned when a terminal decision arrives after the
// request already reached a terminal state
var ErrAlreadyResolved = errors.New("approval already resolved")

// defaultCheckInterval paces the polling loop
const defaultCheckInterval = 2 * time.Second

// Store is the durable record store the machine writes through. Terminal
// transitions go through the conditional ResolveApproval write only.
type Store interface {
	PutApproval(req *domain.ApprovalRequest) error
	GetApproval(id string) (*domain.ApprovalRequest, error)
	ResolveApproval(id string, expected, next domain.ApprovalStatus, actor, editedText string, at time.Time) (bool, error)
}

// Channel publishes approval requests to human reviewers. Publishing is
// fire-and-forget: a failing channel never blocks the machine.
type Channel interface {
	Publish(req *domain.ApprovalRequest) error
}

// PromptFunc is the synchronous fallback used when the channel is down.
// It returns the reviewer's decision directly.
type PromptFunc func(req *domain.ApprovalRequest) (domain.ApprovalStatus, string, error)

// Decision is the terminal outcome of one approval request
type Decision struct {
	Status     domain.ApprovalStatus
	Approved   bool
	EditedText string
	DecidedBy  string
}

// Machine drives approval requests from pending to a terminal state. Each
// request is an independent record; any number may be in flight at once.
type Machine struct {
	store         Store
	channel       Channel
	prompt        PromptFunc
	checkInterval time.Duration
	log           *slog.Logger
	now           func() time.Time
}

// Option configures a Machine
type Option func(*Machine)

// WithCheckInterval overrides the polling interval
func WithCheckInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

// WithPrompt installs a synchronous fallback prompt used when the channel
// publish fails
func WithPrompt(prompt PromptFunc) Option {
	return func(m *Machine) { m.prompt = prompt }
}

// New creates an approval machine. The channel may be nil for headless runs.
func New(store Store, channel Channel, log *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:         store,
		channel:       channel,
		checkInterval: defaultCheckInterval,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRequestID builds a unique approval ID for a platform. The uuid suffix
// keeps IDs unique when two requests for one platform land in the same second.
func (m *Machine) NewRequestID(platform string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%d_%s", platform, m.now().Unix(), suffix)
}

// RequestApproval persists a pending request for the candidate, publishes it
// to the reviewer channel, and polls the record until a terminal status
// appears or the deadline passes. At the deadline the machine itself writes
// TIMEOUT through the conditional write, so a racing reviewer decision still
// wins if it lands first.
func (m *Machine) RequestApproval(ctx context.Context, cand domain.ContentCandidate, score float64, timeout time.Duration) (Decision, error) {
	now := m.now()
	req := &domain.ApprovalRequest{
		ID:        m.NewRequestID(cand.Platform),
		Platform:  cand.Platform,
		Content:   cand.Clone(),
		Score:     score,
		Status:    domain.ApprovalPending,
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
	}

	if err := m.store.PutApproval(req); err != nil {
		return Decision{}, fmt.Errorf("persisting approval request: %w", err)
	}

	m.publish(req)

	return m.poll(ctx, req.ID)
}

// publish pushes the request to the reviewer channel, falling back to the
// direct prompt when the channel is unavailable
func (m *Machine) publish(req *domain.ApprovalRequest) {
	if m.channel != nil {
		if err := m.channel.Publish(req); err == nil {
			return
		} else {
			m.log.Warn("approval channel unavailable", "id", req.ID, "error", err)
		}
	}

	if m.prompt == nil {
		return
	}

	status, editedText, err := m.prompt(req)
	if err != nil {
		m.log.Warn("direct approval prompt failed", "id", req.ID, "error", err)
		return
	}
	if err := m.Resolve(req.ID, status, "direct_prompt", editedText); err != nil {
		m.log.Warn("direct prompt decision not applied", "id", req.ID, "error", err)
	}
}

// poll re-reads the persisted record every check interval until it leaves
// pending or expires. Independent requests never block each other.
func (m *Machine) poll(ctx context.Context, id string) (Decision, error) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		req, err := m.store.GetApproval(id)
		if err != nil {
			return Decision{}, err
		}

		if req.Status != domain.ApprovalPending {
			return decisionFrom(req), nil
		}

		if req.Expired(m.now()) {
			ok, err := m.store.ResolveApproval(id, domain.ApprovalPending, domain.ApprovalTimeout, "watchdog", "", m.now())
			if err != nil {
				return Decision{}, err
			}
			if ok {
				m.log.Info("approval request timed out", "id", id)
				return Decision{Status: domain.ApprovalTimeout}, nil
			}
			// A reviewer won the race; the next read sees their decision
			continue
		}

		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Resolve records a reviewer decision. The first terminal write wins; later
// calls for the same request return ErrAlreadyResolved.
func (m *Machine) Resolve(id string, status domain.ApprovalStatus, actor, editedText string) error {
	if !status.ReviewerStatus() {
		return fmt.Errorf("status %q is not a reviewer decision", status)
	}
	if status == domain.ApprovalEdited && editedText == "" {
		return fmt.Errorf("edited decision requires replacement text")
	}

	ok, err := m.store.ResolveApproval(id, domain.ApprovalPending, status, actor, editedText, m.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("approval %s: %w", id, ErrAlreadyResolved)
	}

	m.log.Info("approval resolved", "id", id, "status", status, "actor", actor)
	return nil
}

func decisionFrom(req *domain.ApprovalRequest) Decision {
	return Decision{
		Status:     req.Status,
		Approved:   req.Status == domain.ApprovalApproved || req.Status == domain.ApprovalEdited,
		EditedText: req.EditedText,
		DecidedBy:  req.DecidedBy,
	}
}
