package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/hochfrequenz/content-pipeline/internal/brand"
)

const drafterSystemPrompt = `You are a social media copywriter. Write a single post for the
requested platform about the given topic, matching the brand voice. Reply
with the post text only, no quotes and no commentary.`

// Drafter writes initial candidate text for a topic and platform
type Drafter struct {
	client *Client
}

// NewDrafter creates a drafter on the shared client
func NewDrafter(client *Client) *Drafter {
	return &Drafter{client: client}
}

// Draft produces the first candidate text for a topic on a platform
func (d *Drafter) Draft(ctx context.Context, topic, platform string, profile *brand.Profile) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Platform: %s\n", platform)
	fmt.Fprintf(&sb, "Topic: %s\n", topic)
	if profile != nil {
		fmt.Fprintf(&sb, "Maximum length: %d characters\n", profile.LimitFor(platform))
		fmt.Fprintf(&sb, "Brand: %s\n", profile.Name)
		if profile.Voice != "" {
			fmt.Fprintf(&sb, "Voice: %s\n", profile.Voice)
		}
		if len(profile.Keywords) > 0 {
			fmt.Fprintf(&sb, "Keywords to work in: %s\n", strings.Join(profile.Keywords, ", "))
		}
		if len(profile.BannedPhrases) > 0 {
			fmt.Fprintf(&sb, "Never use: %s\n", strings.Join(profile.BannedPhrases, ", "))
		}
		if len(profile.Hashtags) > 0 {
			fmt.Fprintf(&sb, "Preferred hashtags: %s\n", strings.Join(profile.Hashtags, ", "))
		}
	}

	reply, err := d.client.chat(ctx, drafterSystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("drafting %s post: %w", platform, err)
	}

	text := strings.TrimSpace(reply)
	if text == "" {
		return "", fmt.Errorf("drafter returned empty text")
	}
	return text, nil
}
