package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// TelegramPublisher sends approval requests to a Telegram chat via bot API
type TelegramPublisher struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramPublisher registers bot token and chat identifier
func NewTelegramPublisher(botToken, chatID string) *TelegramPublisher {
	return &TelegramPublisher{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish posts the approval request as a Markdown message
func (t *TelegramPublisher) Publish(req *domain.ApprovalRequest) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram publisher misconfigured")
	}

	text := fmt.Sprintf("*Approval needed* (%s, score %.2f)\n\n%s\n\n`%s`\nExpires %s",
		req.Platform, req.Score, req.Content.Text, req.ID, req.ExpiresAt.Format(time.RFC3339))

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
