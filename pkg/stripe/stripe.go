// Package stripe provides a minimal HTTP client for the parts of the Stripe
// API this service needs: payment intents and refunds.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/artlinkhq/artlink_backend/config"
)

var (
	ErrNotConfigured      = errors.New("stripe: secret key is not configured")
	ErrCardDeclined       = errors.New("stripe: card declined")
	ErrChargeNotFound     = errors.New("stripe: no such charge")
	ErrAlreadyRefunded    = errors.New("stripe: charge has already been refunded")
	ErrUnexpectedResponse = errors.New("stripe: unexpected response from gateway")
)

// Client is a lightweight Stripe HTTP client.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// PaymentIntent is the subset of the payment-intent resource we read.
type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
}

// Refund is the subset of the refund resource we read.
type Refund struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a Client from config. BaseURL defaults to the live API host.
func New(cfg config.StripeConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client holds credentials. Calls on an
// unconfigured client fail with ErrNotConfigured.
func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

// CreatePaymentIntent starts a payment of amount minor units.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency, desc string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("description", desc)

	var pi PaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, &pi); err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	if pi.ID == "" {
		return nil, ErrUnexpectedResponse
	}
	return &pi, nil
}

// GetPaymentIntent fetches the current state of a payment intent.
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+id, nil, &pi); err != nil {
		return nil, fmt.Errorf("stripe get payment intent: %w", err)
	}
	return &pi, nil
}

// RefundPayment refunds amount minor units of the given payment intent.
// A nil error means the gateway accepted the refund.
func (c *Client) RefundPayment(ctx context.Context, paymentRef string, amount int64) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentRef)
	form.Set("amount", strconv.FormatInt(amount, 10))

	var r Refund
	if err := c.post(ctx, "/v1/refunds", form, &r); err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	if r.ID == "" || (r.Status != "succeeded" && r.Status != "pending") {
		return nil, fmt.Errorf("%w (status=%s)", ErrUnexpectedResponse, r.Status)
	}
	return &r, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, form, out)
}

// do sends a form-encoded request with Bearer auth and decodes the JSON
// response into out, mapping Stripe error codes to sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("%w (http %d)", ErrUnexpectedResponse, res.StatusCode)
		}
		switch apiErr.Error.Code {
		case "card_declined":
			return ErrCardDeclined
		case "charge_already_refunded":
			return ErrAlreadyRefunded
		case "resource_missing":
			return ErrChargeNotFound
		default:
			return fmt.Errorf("%w (code=%s, msg=%s)", ErrUnexpectedResponse, apiErr.Error.Code, apiErr.Error.Message)
		}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
