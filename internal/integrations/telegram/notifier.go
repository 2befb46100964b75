// Package telegram pushes order confirmations to the shop's Telegram
// channel. Unconfigured notifiers are silent no-ops.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/domain"
)

type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *Notifier) NotifyOrder(ctx context.Context, payload domain.OrderPayload) error {
	text := fmt.Sprintf(
		"New order %s: %d item(s), total K%s (%s) for %s %s",
		payload.OrderID,
		len(payload.LineItems),
		payload.Totals.Rounded().Total.StringFixed(2),
		payload.PaymentMethod,
		payload.Contact.FirstName,
		payload.Contact.LastName,
	)
	return n.send(ctx, text)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || text == "" {
		return nil
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)

	raw, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
