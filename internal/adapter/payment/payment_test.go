package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func stripeBackend(t *testing.T, h http.HandlerFunc) stripe.Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
}

func TestStripeGateway_CreatePaymentIntent(t *testing.T) {
	var form map[string]string
	var idem string
	b := stripeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		form = map[string]string{
			"amount":   r.PostForm.Get("amount"),
			"currency": r.PostForm.Get("currency"),
			"auto":     r.PostForm.Get("automatic_payment_methods[enabled]"),
			"session":  r.PostForm.Get("metadata[session_id]"),
		}
		idem = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","amount":54498,"currency":"usd","client_secret":"pi_123_secret_abc"}`))
	})

	g := NewStripeGateway("sk_test_123", b)
	pi, err := g.CreatePaymentIntent(context.Background(), usecase.PaymentIntentRequest{
		SessionID: "s1", AmountCents: 54498, Currency: "usd", IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, usecase.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, pi)
	assert.Equal(t, "54498", form["amount"])
	assert.Equal(t, "usd", form["currency"])
	assert.Equal(t, "true", form["auto"])
	assert.Equal(t, "s1", form["session"])
	assert.Equal(t, "s1:k1", idem)
}

func TestStripeGateway_ProviderError(t *testing.T) {
	b := stripeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","message":"declined"}}`))
	})

	_, err := NewStripeGateway("sk_test_123", b).CreatePaymentIntent(context.Background(),
		usecase.PaymentIntentRequest{SessionID: "s1", AmountCents: 100, Currency: "usd"})
	require.Error(t, err)
	var se *stripe.Error
	assert.True(t, errors.As(err, &se))
}

func TestStripeGateway_RejectsNonPositiveAmount(t *testing.T) {
	g := NewStripeGateway("sk_test_123", nil)
	_, err := g.CreatePaymentIntent(context.Background(), usecase.PaymentIntentRequest{Currency: "usd"})
	assert.Error(t, err)
}

func TestFakeGateway(t *testing.T) {
	g := NewFakeGateway()
	pi, err := g.CreatePaymentIntent(context.Background(), usecase.PaymentIntentRequest{SessionID: "s1", AmountCents: 5})
	require.NoError(t, err)
	assert.Contains(t, pi.ClientSecret, pi.ID+"_secret_")
	require.Len(t, g.Requests(), 1)

	g.Err = errors.New("down")
	_, err = g.CreatePaymentIntent(context.Background(), usecase.PaymentIntentRequest{})
	assert.ErrorIs(t, err, g.Err)
}
