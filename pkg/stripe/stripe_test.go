package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artlinkhq/artlink_backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.StripeConfig{
		SecretKey: "sk_test_123",
		BaseURL:   srv.URL,
	})
}

func TestConfigured(t *testing.T) {
	if (&Client{}).Configured() {
		t.Error("empty client should not be configured")
	}
	var nilClient *Client
	if nilClient.Configured() {
		t.Error("nil client should not be configured")
	}
	c := New(config.StripeConfig{SecretKey: "sk_test_123"})
	if !c.Configured() {
		t.Error("client with secret key should be configured")
	}
}

func TestUnconfiguredClientFails(t *testing.T) {
	c := New(config.StripeConfig{})
	_, err := c.CreatePaymentIntent(context.Background(), 1000, "USD", "test")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("bad auth header: %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("amount"); got != "2500" {
			t.Errorf("amount = %q, want 2500", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Errorf("currency = %q, want usd (lowercased)", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","status":"requires_payment_method","amount":2500,"currency":"usd","client_secret":"pi_123_secret"}`))
	})

	pi, err := c.CreatePaymentIntent(context.Background(), 2500, "USD", "deposit")
	if err != nil {
		t.Fatalf("CreatePaymentIntent failed: %v", err)
	}
	if pi.ID != "pi_123" {
		t.Errorf("id = %q, want pi_123", pi.ID)
	}
	if pi.ClientSecret != "pi_123_secret" {
		t.Errorf("client secret = %q", pi.ClientSecret)
	}
}

func TestCreatePaymentIntent_CardDeclined(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	})

	_, err := c.CreatePaymentIntent(context.Background(), 2500, "USD", "deposit")
	if !errors.Is(err, ErrCardDeclined) {
		t.Errorf("expected ErrCardDeclined, got %v", err)
	}
}

func TestGetPaymentIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/payment_intents/pi_123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":2500,"currency":"usd"}`))
	})

	pi, err := c.GetPaymentIntent(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("GetPaymentIntent failed: %v", err)
	}
	if pi.Status != "succeeded" {
		t.Errorf("status = %q, want succeeded", pi.Status)
	}
}

func TestRefundPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/refunds" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("payment_intent"); got != "pi_123" {
			t.Errorf("payment_intent = %q", got)
		}
		if got := r.PostForm.Get("amount"); got != "1000" {
			t.Errorf("amount = %q, want 1000", got)
		}
		w.Write([]byte(`{"id":"re_123","status":"succeeded","amount":1000,"currency":"usd"}`))
	})

	ref, err := c.RefundPayment(context.Background(), "pi_123", 1000)
	if err != nil {
		t.Fatalf("RefundPayment failed: %v", err)
	}
	if ref.ID != "re_123" {
		t.Errorf("id = %q, want re_123", ref.ID)
	}
}

func TestRefundPayment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"already refunded", "charge_already_refunded", ErrAlreadyRefunded},
		{"missing charge", "resource_missing", ErrChargeNotFound},
		{"anything else", "processing_error", ErrUnexpectedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"` + tt.code + `","message":"nope"}}`))
			})
			_, err := c.RefundPayment(context.Background(), "pi_123", 1000)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRefundPayment_RejectsFailedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"re_123","status":"failed","amount":1000,"currency":"usd"}`))
	})

	_, err := c.RefundPayment(context.Background(), "pi_123", 1000)
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Errorf("expected ErrUnexpectedResponse for failed refund, got %v", err)
	}
}
