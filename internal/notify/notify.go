package notify

import (
	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// Publisher pushes approval requests to human reviewers. Publishing is
// fire-and-forget from the pipeline's perspective.
type Publisher interface {
	Publish(req *domain.ApprovalRequest) error
}

// Resolver applies a reviewer decision to a pending approval request.
// Implemented by the approval machine.
type Resolver interface {
	Resolve(id string, status domain.ApprovalStatus, actor, editedText string) error
}

// MultiPublisher publishes to multiple channels
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a publisher that sends to all provided channels
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish sends the request to all channels; every channel is attempted and
// the last error wins
func (m *MultiPublisher) Publish(req *domain.ApprovalRequest) error {
	var lastErr error
	for _, p := range m.publishers {
		if err := p.Publish(req); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopPublisher does nothing (for testing or disabled notifications)
type NoopPublisher struct{}

func (NoopPublisher) Publish(req *domain.ApprovalRequest) error { return nil }
