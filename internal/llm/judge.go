package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
	"github.com/hochfrequenz/content-pipeline/internal/evaluator"
)

const judgeSystemPrompt = `You are a social media content reviewer for a brand.
Score the given post for brand fit, clarity, and engagement potential.
Respond with a single JSON object: {"score": <float 0..1>, "explanation": "<one or two sentences>"}`

// Judge asks the model to score content; implements evaluator.Judge
type Judge struct {
	client *Client
}

// NewJudge creates a model-backed judge
func NewJudge(client *Client) *Judge {
	return &Judge{client: client}
}

type judgeReply struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Score evaluates content for a platform against the brand profile
func (j *Judge) Score(ctx context.Context, content, platform string, profile *brand.Profile, extra string) (evaluator.Judgment, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Platform: %s (limit %d characters)\n", platform, profile.LimitFor(platform))
	fmt.Fprintf(&sb, "Brand: %s\nVoice: %s\n", profile.Name, profile.Voice)
	if len(profile.Keywords) > 0 {
		fmt.Fprintf(&sb, "Voice keywords: %s\n", strings.Join(profile.Keywords, ", "))
	}
	if len(profile.BannedPhrases) > 0 {
		fmt.Fprintf(&sb, "Never use: %s\n", strings.Join(profile.BannedPhrases, ", "))
	}
	if extra != "" {
		fmt.Fprintf(&sb, "Context: %s\n", extra)
	}
	fmt.Fprintf(&sb, "\nPost:\n%s", content)

	reply, err := j.client.chat(ctx, judgeSystemPrompt, sb.String())
	if err != nil {
		return evaluator.Judgment{}, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return evaluator.Judgment{}, fmt.Errorf("judge reply: %w", err)
	}
	var parsed judgeReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return evaluator.Judgment{}, fmt.Errorf("judge reply: %w", err)
	}

	return evaluator.Judgment{
		Score:       parsed.Score,
		Explanation: parsed.Explanation,
		Model:       j.client.Model(),
	}, nil
}
