package payment

import (
	"context"
	"sync"

	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/google/uuid"
)

// FakeGateway issues local intents without talking to a provider. It is used
// in dev and tests, and remembers every request it saw.
type FakeGateway struct {
	mu       sync.Mutex
	requests []usecase.PaymentIntentRequest
	Err      error // returned by every call when set
}

func NewFakeGateway() *FakeGateway { return &FakeGateway{} }

func (g *FakeGateway) CreatePaymentIntent(_ context.Context, req usecase.PaymentIntentRequest) (usecase.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.Err != nil {
		return usecase.PaymentIntent{}, g.Err
	}
	id := "pi_fake_" + uuid.NewString()
	return usecase.PaymentIntent{ID: id, ClientSecret: id + "_secret_" + uuid.NewString()}, nil
}

func (g *FakeGateway) Requests() []usecase.PaymentIntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]usecase.PaymentIntentRequest(nil), g.requests...)
}

var _ usecase.PaymentGateway = (*FakeGateway)(nil)
