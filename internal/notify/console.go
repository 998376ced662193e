package notify

import (
	"fmt"
	"io"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// ConsolePublisher prints approval requests to a writer, for local runs
// without a chat channel
type ConsolePublisher struct {
	out io.Writer
}

// NewConsolePublisher creates a console publisher
func NewConsolePublisher(out io.Writer) *ConsolePublisher {
	return &ConsolePublisher{out: out}
}

// Publish prints the approval request with resolution instructions
func (c *ConsolePublisher) Publish(req *domain.ApprovalRequest) error {
	_, err := fmt.Fprintf(c.out,
		"\n--- approval needed [%s] ---\nplatform: %s  score: %.2f  expires: %s\n\n%s\n\nresolve with: content-orch resolve %s --decision approved|rejected\n",
		req.ID, req.Platform, req.Score, req.ExpiresAt.Format(time.RFC3339), req.Content.Text, req.ID)
	return err
}
