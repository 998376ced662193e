package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hochfrequenz/content-pipeline/internal/regenerator"
)

const improverSystemPrompt = `You improve social media posts based on reviewer feedback.
Keep the original intent, address the feedback, and respect the platform's character limit.
Respond with a single JSON object:
{"text": "<improved post>", "explanation": "<what changed>", "issues_addressed": ["<issue>", ...]}`

// Improver asks the model for a revised post; implements regenerator.Improver
type Improver struct {
	client *Client
}

// NewImprover creates a model-backed improver
func NewImprover(client *Client) *Improver {
	return &Improver{client: client}
}

type improverReply struct {
	Text            string   `json:"text"`
	Explanation     string   `json:"explanation"`
	IssuesAddressed []string `json:"issues_addressed"`
}

// Improve requests a revision of content addressing the given feedback
func (i *Improver) Improve(ctx context.Context, content, platform, feedback string) (regenerator.Improvement, error) {
	user := fmt.Sprintf("Platform: %s\nFeedback: %s\n\nPost:\n%s", platform, feedback, content)

	reply, err := i.client.chat(ctx, improverSystemPrompt, user)
	if err != nil {
		return regenerator.Improvement{}, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return regenerator.Improvement{}, fmt.Errorf("improver reply: %w", err)
	}
	var parsed improverReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return regenerator.Improvement{}, fmt.Errorf("improver reply: %w", err)
	}
	if parsed.Text == "" {
		return regenerator.Improvement{}, fmt.Errorf("improver reply: empty text")
	}

	return regenerator.Improvement{
		Text:            parsed.Text,
		Explanation:     parsed.Explanation,
		IssuesAddressed: parsed.IssuesAddressed,
	}, nil
}
