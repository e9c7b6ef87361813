package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStripeClient(baseURL string) *StripeClient {
	return &StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: baseURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCreateCheckoutSessionSubscriptionMode(t *testing.T) {
	var gotForm map[string][]string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/sessions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		gotAuth = user
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cs_123", "url": "https://pay.example.com/cs_123"}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv.URL)
	out, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:          "subscription",
		PriceRef:      "price_pro_m",
		CustomerEmail: "jane@example.com",
		SuccessURL:    "https://shop.example.com/ok",
		CancelURL:     "https://shop.example.com/no",
		Metadata:      map[string]string{"license_key": "TF-TEST-TEST-TEST-TEST"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", out.ID)
	assert.Equal(t, "https://pay.example.com/cs_123", out.URL)

	assert.Equal(t, "sk_test_123", gotAuth)
	assert.Equal(t, []string{"subscription"}, gotForm["mode"])
	assert.Equal(t, []string{"price_pro_m"}, gotForm["line_items[0][price]"])
	assert.Equal(t, []string{"1"}, gotForm["line_items[0][quantity]"])
	assert.Equal(t, []string{"jane@example.com"}, gotForm["customer_email"])
	// Metadata is mirrored onto the subscription so webhook events carry it.
	assert.Equal(t, []string{"TF-TEST-TEST-TEST-TEST"}, gotForm["metadata[license_key]"])
	assert.Equal(t, []string{"TF-TEST-TEST-TEST-TEST"}, gotForm["subscription_data[metadata][license_key]"])
	assert.Empty(t, gotForm["payment_intent_data[metadata][license_key]"])
}

func TestCreateCheckoutSessionPaymentModeMirrorsToPaymentIntent(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"id": "cs_1", "url": "https://pay.example.com/cs_1"}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv.URL)
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:     "payment",
		PriceRef: "price_life",
		Metadata: map[string]string{"order_reference": "ord_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ord_1"}, gotForm["payment_intent_data[metadata][order_reference]"])
	assert.Empty(t, gotForm["subscription_data[metadata][order_reference]"])
}

func TestCreateCheckoutSessionSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such price"}}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv.URL)
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:     "payment",
		PriceRef: "price_missing",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestUpdateSubscriptionMetadata(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"id": "sub_1"}`))
	}))
	defer srv.Close()

	client := newTestStripeClient(srv.URL)
	err := client.UpdateSubscriptionMetadata(context.Background(), "sub_1", map[string]string{"plan": "pro_yearly"})
	require.NoError(t, err)
	assert.Equal(t, "/subscriptions/sub_1", gotPath)
	assert.Equal(t, []string{"pro_yearly"}, gotForm["metadata[plan]"])
}

func TestStripeClientRequiresSecretKey(t *testing.T) {
	client := &StripeClient{APIBaseURL: "http://localhost:0"}
	_, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:     "payment",
		PriceRef: "price_x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STRIPE_SECRET_KEY")
}
