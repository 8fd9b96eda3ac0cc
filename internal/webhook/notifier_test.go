package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payout-service/internal/domain/payout"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newWebhookPayout(callbackURL string) payout.Payout {
	return payout.Payout{
		ID:               uuid.MustParse("6f1c1a52-3b1e-4c55-9a77-0d6a9e3f2b10"),
		Amount:           decimal.RequireFromString("999999.99"),
		Currency:         payout.CurrencyUSD,
		RecipientName:    "Hook",
		RecipientAccount: "ACC-777777",
		Status:           payout.StatusCompleted,
		CallbackURL:      callbackURL,
		UpdatedAt:        time.Date(2026, 2, 13, 12, 30, 15, 123456000, time.UTC),
	}
}

func TestNotifier_SendPostsSnapshot(t *testing.T) {
	var received Payload
	var contentType, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p := newWebhookPayout(server.URL)
	if err := NewNotifier(time.Second).Send(context.Background(), p); err != nil {
		t.Fatalf("send: %v", err)
	}

	if method != http.MethodPost || contentType != "application/json" {
		t.Fatalf("expected JSON POST, got %s %s", method, contentType)
	}
	if received.PayoutID != p.ID.String() || received.Status != "completed" || received.Currency != "USD" {
		t.Fatalf("unexpected payload %+v", received)
	}
	if received.UpdatedAt != "2026-02-13T12:30:15.123456Z" {
		t.Fatalf("unexpected updated_at %q", received.UpdatedAt)
	}

	amount, err := decimal.NewFromString(received.Amount)
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	if !amount.Equal(p.Amount) || received.Amount != "999999.99" {
		t.Fatalf("amount drifted: sent %s, stored %s", received.Amount, p.Amount)
	}
}

func TestNewPayload_AmountKeepsTwoDecimals(t *testing.T) {
	p := newWebhookPayout("https://example.com/hook")
	p.Amount = decimal.RequireFromString("120.5")
	if got := NewPayload(p).Amount; got != "120.50" {
		t.Fatalf("expected 120.50, got %s", got)
	}
}

func TestNotifier_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		err := NewNotifier(time.Second).Send(context.Background(), newWebhookPayout(server.URL))
		server.Close()

		var delivery *DeliveryError
		if !errors.As(err, &delivery) {
			t.Fatalf("status %d: expected DeliveryError, got %v", tt.status, err)
		}
		if delivery.StatusCode != tt.status || delivery.Retryable() != tt.retryable {
			t.Fatalf("status %d: got code=%d retryable=%v", tt.status, delivery.StatusCode, delivery.Retryable())
		}
	}
}

func TestNotifier_TimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	err := NewNotifier(50*time.Millisecond).Send(context.Background(), newWebhookPayout(server.URL))
	var delivery *DeliveryError
	if !errors.As(err, &delivery) || !delivery.Retryable() {
		t.Fatalf("expected retryable timeout error, got %v", err)
	}
}

func TestNotifier_SkipsEmptyCallback(t *testing.T) {
	if err := NewNotifier(time.Second).Send(context.Background(), newWebhookPayout("")); err != nil {
		t.Fatalf("expected no-op for empty callback, got %v", err)
	}
}
