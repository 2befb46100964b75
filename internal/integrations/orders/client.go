// Package orders posts the final order payload to the fulfilment endpoint.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/domain"
)

type Client struct {
	endpoint   string
	maxRetries int
	retryBase  time.Duration
	retryMax   time.Duration
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration, maxRetries int, retryBase, retryMax time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		maxRetries: maxRetries,
		retryBase:  retryBase,
		retryMax:   retryMax,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit sends the payload, retrying transport errors and 5xx responses
// with capped exponential backoff. The order id doubles as idempotency key
// so a retried submission can never create two orders.
//
// With no endpoint configured the round-trip is simulated and always
// succeeds.
func (c *Client) Submit(ctx context.Context, payload domain.OrderPayload) error {
	if c.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	delay := c.retryBase
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.retryMax {
				delay = c.retryMax
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", payload.OrderID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode <= 499 {
			// The endpoint understood us and said no; retrying won't help.
			return fmt.Errorf("order endpoint rejected submission: status %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("order endpoint status %d", resp.StatusCode)
	}
	return fmt.Errorf("submit order after %d attempts: %w", c.maxRetries+1, lastErr)
}
