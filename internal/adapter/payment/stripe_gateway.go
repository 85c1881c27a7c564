package payment

import (
	"context"
	"fmt"

	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway creates Stripe PaymentIntents for the cart total.
type StripeGateway struct {
	sc *client.API
}

// NewStripeGateway uses the default Stripe backend when backend is nil.
func NewStripeGateway(secretKey string, backend stripe.Backend) *StripeGateway {
	var backends *stripe.Backends
	if backend != nil {
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &StripeGateway{sc: sc}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req usecase.PaymentIntentRequest) (usecase.PaymentIntent, error) {
	if req.AmountCents <= 0 {
		return usecase.PaymentIntent{}, fmt.Errorf("stripe: amount must be positive, got %d", req.AmountCents)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("session_id", req.SessionID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.SessionID + ":" + req.IdempotencyKey)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return usecase.PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return usecase.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

var _ usecase.PaymentGateway = (*StripeGateway)(nil)
