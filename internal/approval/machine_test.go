package approval

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
	"github.com/hochfrequenz/content-pipeline/internal/store"
)

type recordingChannel struct {
	mu        sync.Mutex
	published []*domain.ApprovalRequest
	err       error
}

func (c *recordingChannel) Publish(req *domain.ApprovalRequest) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, req)
	return nil
}

// firstID blocks briefly until a request has been published
func (c *recordingChannel) firstID() string {
	for i := 0; i < 200; i++ {
		c.mu.Lock()
		if len(c.published) > 0 {
			id := c.published[0].ID
			c.mu.Unlock()
			return id
		}
		c.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	return ""
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testMachine(t *testing.T, channel Channel, opts ...Option) (*Machine, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	opts = append([]Option{WithCheckInterval(5 * time.Millisecond)}, opts...)
	return New(s, channel, testLogger(), opts...), s
}

func testCandidate() domain.ContentCandidate {
	return domain.ContentCandidate{
		Platform: "twitter",
		Text:     "Caregivers, try our new feature! #CaregiverSupport",
	}
}

func TestRequestApproval_ZeroTimeoutResolvesTimeout(t *testing.T) {
	m, _ := testMachine(t, &recordingChannel{})

	decision, err := m.RequestApproval(context.Background(), testCandidate(), 0.75, 0)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Status != domain.ApprovalTimeout {
		t.Errorf("Status = %q, want timeout", decision.Status)
	}
	if decision.Approved {
		t.Error("Approved = true, want false on timeout")
	}
}

func TestRequestApproval_ReviewerApproves(t *testing.T) {
	channel := &recordingChannel{}
	m, _ := testMachine(t, channel)

	go func() {
		if id := channel.firstID(); id != "" {
			m.Resolve(id, domain.ApprovalApproved, "alice", "")
		}
	}()

	decision, err := m.RequestApproval(context.Background(), testCandidate(), 0.75, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Approved {
		t.Errorf("Approved = false, want true (status %q)", decision.Status)
	}
	if decision.DecidedBy != "alice" {
		t.Errorf("DecidedBy = %q, want alice", decision.DecidedBy)
	}
}

func TestRequestApproval_EditedReturnsText(t *testing.T) {
	channel := &recordingChannel{}
	m, _ := testMachine(t, channel)

	go func() {
		if id := channel.firstID(); id != "" {
			m.Resolve(id, domain.ApprovalEdited, "carol", "Polished copy #better")
		}
	}()

	decision, err := m.RequestApproval(context.Background(), testCandidate(), 0.75, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !decision.Approved {
		t.Error("Approved = false, want true for edited")
	}
	if decision.EditedText != "Polished copy #better" {
		t.Errorf("EditedText = %q", decision.EditedText)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	m, s := testMachine(t, &recordingChannel{})

	now := time.Now()
	req := &domain.ApprovalRequest{
		ID:        "twitter_1_x",
		Platform:  "twitter",
		Content:   testCandidate(),
		Status:    domain.ApprovalPending,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}
	if err := s.PutApproval(req); err != nil {
		t.Fatal(err)
	}

	if err := m.Resolve(req.ID, domain.ApprovalApproved, "alice", ""); err != nil {
		t.Fatalf("first Resolve error = %v", err)
	}
	err := m.Resolve(req.ID, domain.ApprovalRejected, "bob", "")
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second Resolve error = %v, want ErrAlreadyResolved", err)
	}

	got, _ := s.GetApproval(req.ID)
	if got.Status != domain.ApprovalApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}
}

func TestResolve_RejectsWatchdogStatus(t *testing.T) {
	m, _ := testMachine(t, &recordingChannel{})
	if err := m.Resolve("any", domain.ApprovalTimeout, "mallory", ""); err == nil {
		t.Error("Resolve accepted timeout from a reviewer")
	}
	if err := m.Resolve("any", domain.ApprovalEdited, "carol", ""); err == nil {
		t.Error("Resolve accepted edited decision without text")
	}
}

func TestRequestApproval_ChannelFailureFallsBackToPrompt(t *testing.T) {
	prompted := false
	prompt := func(req *domain.ApprovalRequest) (domain.ApprovalStatus, string, error) {
		prompted = true
		return domain.ApprovalApproved, "", nil
	}

	m, _ := testMachine(t, &recordingChannel{err: errors.New("webhook down")}, WithPrompt(prompt))

	decision, err := m.RequestApproval(context.Background(), testCandidate(), 0.75, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !prompted {
		t.Error("fallback prompt was not invoked")
	}
	if !decision.Approved {
		t.Errorf("Approved = false, want true (status %q)", decision.Status)
	}
}

func TestRequestApproval_IndependentRequests(t *testing.T) {
	channel := &recordingChannel{}
	m, _ := testMachine(t, channel)

	// One pending request with a long deadline must not delay another that
	// times out immediately
	slow := make(chan Decision, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		d, _ := m.RequestApproval(ctx, testCandidate(), 0.5, time.Hour)
		slow <- d
	}()

	linkedin := testCandidate()
	linkedin.Platform = "linkedin"
	decision, err := m.RequestApproval(context.Background(), linkedin, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Status != domain.ApprovalTimeout {
		t.Errorf("Status = %q, want timeout", decision.Status)
	}

	select {
	case <-slow:
		t.Error("long-deadline request resolved unexpectedly")
	default:
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	m, _ := testMachine(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := m.NewRequestID("twitter")
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}
