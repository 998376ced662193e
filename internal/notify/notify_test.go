package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleRequest() *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ID:        "twitter_1700000000_abc123",
		Platform:  "twitter",
		Content:   domain.ContentCandidate{Platform: "twitter", Text: "Launch day!"},
		Score:     0.82,
		Status:    domain.ApprovalPending,
		ExpiresAt: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
	}
}

type stubPublisher struct {
	calls int
	err   error
}

func (s *stubPublisher) Publish(req *domain.ApprovalRequest) error {
	s.calls++
	return s.err
}

func TestMultiPublisherAttemptsAllChannels(t *testing.T) {
	failing := &stubPublisher{err: errors.New("webhook down")}
	working := &stubPublisher{}

	multi := NewMultiPublisher(failing, working)
	err := multi.Publish(sampleRequest())

	if err == nil {
		t.Error("Publish() = nil, want error from failing channel")
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls, working.calls)
	}
}

func TestMultiPublisherAllSucceed(t *testing.T) {
	a := &stubPublisher{}
	b := &stubPublisher{}

	if err := NewMultiPublisher(a, b).Publish(sampleRequest()); err != nil {
		t.Errorf("Publish() error = %v, want nil", err)
	}
}

func TestSlackPublisherPostsWebhook(t *testing.T) {
	var received SlackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	pub := NewSlackPublisher(server.URL)
	req := sampleRequest()
	if err := pub.Publish(req); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if !strings.Contains(received.Text, "twitter") {
		t.Errorf("message text = %q, want platform mentioned", received.Text)
	}
	if len(received.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(received.Attachments))
	}
	if received.Attachments[0].Title != req.ID {
		t.Errorf("attachment title = %q, want %q", received.Attachments[0].Title, req.ID)
	}
	if !strings.Contains(received.Attachments[0].Text, req.Content.Text) {
		t.Error("attachment should contain the candidate text")
	}
}

func TestSlackPublisherErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if err := NewSlackPublisher(server.URL).Publish(sampleRequest()); err == nil {
		t.Error("Publish() = nil, want error on 503")
	}
}

func TestSlackPublisherDisabledWithoutURL(t *testing.T) {
	if err := NewSlackPublisher("").Publish(sampleRequest()); err != nil {
		t.Errorf("Publish() error = %v, want nil when webhook unset", err)
	}
}

func TestConsolePublisherOutput(t *testing.T) {
	var buf bytes.Buffer
	req := sampleRequest()

	if err := NewConsolePublisher(&buf).Publish(req); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, req.ID) {
		t.Errorf("output missing request id: %q", out)
	}
	if !strings.Contains(out, req.Content.Text) {
		t.Errorf("output missing candidate text: %q", out)
	}
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		actionID   string
		value      string
		wantStatus domain.ApprovalStatus
		wantID     string
		wantText   string
		wantOK     bool
	}{
		{"approve_content", "req-1", domain.ApprovalApproved, "req-1", "", true},
		{"reject_content", "req-2", domain.ApprovalRejected, "req-2", "", true},
		{"edit_content", "req-3|Better copy here", domain.ApprovalEdited, "req-3", "Better copy here", true},
		{"edit_content", "req-4", "", "", "", false},
		{"edit_content", "req-5|", "", "", "", false},
		{"open_dashboard", "req-6", "", "", "", false},
	}

	for _, tt := range tests {
		status, id, text, ok := decodeAction(tt.actionID, tt.value)
		if ok != tt.wantOK {
			t.Errorf("decodeAction(%q, %q) ok = %v, want %v", tt.actionID, tt.value, ok, tt.wantOK)
			continue
		}
		if status != tt.wantStatus || id != tt.wantID || text != tt.wantText {
			t.Errorf("decodeAction(%q, %q) = (%v, %q, %q), want (%v, %q, %q)",
				tt.actionID, tt.value, status, id, text, tt.wantStatus, tt.wantID, tt.wantText)
		}
	}
}

type recordingResolver struct {
	id     string
	status domain.ApprovalStatus
	actor  string
	text   string
}

func (r *recordingResolver) Resolve(id string, status domain.ApprovalStatus, actor, editedText string) error {
	r.id = id
	r.status = status
	r.actor = actor
	r.text = editedText
	return nil
}

func TestHandleInteractiveResolvesDecision(t *testing.T) {
	resolver := &recordingResolver{}
	listener := NewSocketListener("xapp-test", resolver, discardLogger())

	payload := fmt.Sprintf(`{
		"user": {"username": "reviewer1"},
		"actions": [{"action_id": "approve_content", "value": %q}]
	}`, "twitter_1700000000_abc123")

	listener.handleInteractive(json.RawMessage(payload))

	if resolver.id != "twitter_1700000000_abc123" {
		t.Errorf("resolved id = %q, want request id", resolver.id)
	}
	if resolver.status != domain.ApprovalApproved {
		t.Errorf("resolved status = %v, want %v", resolver.status, domain.ApprovalApproved)
	}
	if resolver.actor != "reviewer1" {
		t.Errorf("actor = %q, want reviewer1", resolver.actor)
	}
}

func TestCalculateBackoffCapped(t *testing.T) {
	if got := calculateBackoff(0); got != initialBackoff {
		t.Errorf("calculateBackoff(0) = %v, want %v", got, initialBackoff)
	}
	if got := calculateBackoff(2); got != 4*time.Second {
		t.Errorf("calculateBackoff(2) = %v, want 4s", got)
	}
	if got := calculateBackoff(20); got != maxBackoff {
		t.Errorf("calculateBackoff(20) = %v, want cap %v", got, maxBackoff)
	}
}
