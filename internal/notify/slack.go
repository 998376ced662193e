package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// SlackPublisher posts approval requests to a Slack webhook
type SlackPublisher struct {
	webhookURL string
	client     *http.Client
}

// SlackMessage represents a Slack message payload
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment
type SlackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer,omitempty"`
}

// NewSlackPublisher creates a new Slack webhook publisher
func NewSlackPublisher(webhookURL string) *SlackPublisher {
	return &SlackPublisher{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Publish posts the approval request to Slack
func (s *SlackPublisher) Publish(req *domain.ApprovalRequest) error {
	if s.webhookURL == "" {
		return nil // Disabled
	}

	msg := SlackMessage{
		Text: fmt.Sprintf("Content approval needed: %s (score %.2f)", req.Platform, req.Score),
		Attachments: []SlackAttachment{
			{
				Color: "#439FE0",
				Title: req.ID,
				Text: fmt.Sprintf("%s\n\nReply with `approve %s`, `reject %s`, or `edit %s <text>` before %s.",
					req.Content.Text, req.ID, req.ID, req.ID, req.ExpiresAt.Format(time.RFC3339)),
				Footer: "Content Pipeline",
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}

	return nil
}
