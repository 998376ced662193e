package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/content-pipeline/internal/domain"
)

// Backoff constants for socket-mode reconnection
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2
)

// calculateBackoff returns the delay for a given attempt number using exponential backoff
func calculateBackoff(attempt int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempt; i++ {
		delay *= backoffFactor
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// connectionsOpenURL is Slack's socket-mode bootstrap endpoint
const connectionsOpenURL = "https://slack.com/api/apps.connections.open"

// SocketListener receives reviewer actions over a Slack socket-mode
// connection and applies them through the resolver. Approve/reject/edit
// buttons in the approval message arrive here as interactive payloads.
type SocketListener struct {
	appToken string
	resolver Resolver
	log      *slog.Logger
	client   *http.Client

	// openURL overrides connectionsOpenURL in tests
	openURL string
}

// NewSocketListener creates a listener using the Slack app-level token
func NewSocketListener(appToken string, resolver Resolver, log *slog.Logger) *SocketListener {
	return &SocketListener{
		appToken: appToken,
		resolver: resolver,
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Second},
		openURL:  connectionsOpenURL,
	}
}

// Run connects and processes reviewer actions until the context is
// canceled, reconnecting with exponential backoff on failure
func (l *SocketListener) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := l.runOnce(ctx); err != nil {
			attempt++
			delay := calculateBackoff(attempt)
			l.log.Warn("socket-mode connection lost", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		// Clean disconnect (Slack refreshes connections routinely)
		attempt = 0
	}
}

func (l *SocketListener) runOnce(ctx context.Context) error {
	wsURL, err := l.openConnection(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// Drop the connection when the context ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		var envelope socketEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			l.log.Warn("unparseable socket-mode frame", "error", err)
			continue
		}

		if envelope.EnvelopeID != "" {
			ack, _ := json.Marshal(map[string]string{"envelope_id": envelope.EnvelopeID})
			if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
				return fmt.Errorf("ack failed: %w", err)
			}
		}

		switch envelope.Type {
		case "disconnect":
			return nil
		case "interactive":
			l.handleInteractive(envelope.Payload)
		}
	}
}

// openConnection asks Slack for a fresh websocket URL
func (l *SocketListener) openConnection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.openURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+l.appToken)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("connections.open: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("connections.open: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("connections.open: %s", parsed.Error)
	}
	return parsed.URL, nil
}

type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload"`
}

type interactivePayload struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// handleInteractive maps a block action to a reviewer decision
func (l *SocketListener) handleInteractive(raw json.RawMessage) {
	var payload interactivePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		l.log.Warn("unparseable interactive payload", "error", err)
		return
	}

	for _, action := range payload.Actions {
		status, requestID, editedText, ok := decodeAction(action.ActionID, action.Value)
		if !ok {
			continue
		}

		err := l.resolver.Resolve(requestID, status, payload.User.Username, editedText)
		if err != nil {
			// Late clicks on an already-decided request land here
			l.log.Info("reviewer action not applied", "id", requestID, "error", err)
		}
	}
}

// decodeAction translates a Slack action into a decision. Edits carry the
// replacement text after the request ID, separated by a pipe.
func decodeAction(actionID, value string) (domain.ApprovalStatus, string, string, bool) {
	switch actionID {
	case "approve_content":
		return domain.ApprovalApproved, value, "", true
	case "reject_content":
		return domain.ApprovalRejected, value, "", true
	case "edit_content":
		id, text, found := strings.Cut(value, "|")
		if !found || text == "" {
			return "", "", "", false
		}
		return domain.ApprovalEdited, id, text, true
	}
	return "", "", "", false
}
