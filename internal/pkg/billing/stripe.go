package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradeforgehq/tradeforge/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal client for the handful of Stripe API calls this
// service makes: creating checkout sessions and pushing subscription
// metadata corrections upstream.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// CheckoutSessionParams describes the checkout session to create.
type CheckoutSessionParams struct {
	Mode          string // "payment" or "subscription"
	PriceRef      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSessionResult is the subset of the created session the shop needs.
type CheckoutSessionResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession creates a hosted checkout session. Metadata is
// mirrored onto the payment intent (payment mode) or the subscription
// (subscription mode) so the webhook events carry it back.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSessionResult, error) {
	if strings.TrimSpace(p.PriceRef) == "" {
		return nil, errors.New("price ref is required")
	}
	mode := strings.TrimSpace(p.Mode)
	if mode == "" {
		mode = "payment"
	}

	form := url.Values{}
	form.Set("mode", mode)
	form.Set("line_items[0][price]", strings.TrimSpace(p.PriceRef))
	form.Set("line_items[0][quantity]", "1")
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	if p.SuccessURL != "" {
		form.Set("success_url", p.SuccessURL)
	}
	if p.CancelURL != "" {
		form.Set("cancel_url", p.CancelURL)
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
		switch mode {
		case "subscription":
			form.Set(fmt.Sprintf("subscription_data[metadata][%s]", k), v)
		default:
			form.Set(fmt.Sprintf("payment_intent_data[metadata][%s]", k), v)
		}
	}

	var out CheckoutSessionResult
	if err := c.postForm(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubscriptionMetadata pushes corrected metadata onto a provider
// subscription, keyed by subscription reference.
func (c *StripeClient) UpdateSubscriptionMetadata(ctx context.Context, subscriptionRef string, metadata map[string]string) error {
	ref := strings.TrimSpace(subscriptionRef)
	if ref == "" {
		return errors.New("subscription ref is required")
	}

	form := url.Values{}
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	return c.postForm(ctx, "/subscriptions/"+url.PathEscape(ref), form, nil)
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.SecretKey, "")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s (%s)", path, apiErr.Error.Message, apiErr.Error.Type)
		}
		return fmt.Errorf("stripe %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *StripeClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
