package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

// WebhookPayload is compatible with Discord and Slack incoming webhooks.
type WebhookPayload struct {
	Content    string       `json:"content"`
	Text       string       `json:"text"`
	DraftID    string       `json:"draftId"`
	Selections int          `json:"selections"`
	Phase      engine.Phase `json:"phase"`
}

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Notify(ctx context.Context, d engine.Draft) error {
	msg := Message(d)
	body, err := json.Marshal(WebhookPayload{
		Content:    msg,
		Text:       msg,
		DraftID:    d.ID,
		Selections: len(d.Selections),
		Phase:      d.Phase(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %s", resp.Status)
	}
	return nil
}
