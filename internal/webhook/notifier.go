package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payout-service/internal/domain/payout"
)

const userAgent = "payout-service-webhook/1.0"

// Payload is the JSON body POSTed to a payout's callback URL.
type Payload struct {
	PayoutID  string `json:"payout_id"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	UpdatedAt string `json:"updated_at"`
}

// NewPayload snapshots the fields a recipient is notified about.
func NewPayload(p payout.Payout) Payload {
	return Payload{
		PayoutID:  p.ID.String(),
		Status:    string(p.Status),
		Amount:    p.Amount.StringFixed(payout.AmountScale),
		Currency:  string(p.Currency),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DeliveryError describes a failed webhook POST.
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook delivery to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("webhook delivery to %s failed with status %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later attempt could succeed: transport errors,
// timeouts, 429 and 5xx responses.
func (e *DeliveryError) Retryable() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Notifier struct {
	client *http.Client
}

func NewNotifier(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// NewNotifierWithClient is used when the caller owns the HTTP client.
func NewNotifierWithClient(client *http.Client) *Notifier {
	return &Notifier{client: client}
}

// Send POSTs the payout snapshot to its callback URL once.
func (n *Notifier) Send(ctx context.Context, p payout.Payout) error {
	if !p.HasCallback() {
		return nil
	}

	body, err := json.Marshal(NewPayload(p))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid callback url: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return &DeliveryError{URL: p.CallbackURL, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{URL: p.CallbackURL, StatusCode: resp.StatusCode}
	}
	return nil
}
