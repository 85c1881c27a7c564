package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/7amooo12/SamaStylestore/internal/adapter/payment"
	"github.com/7amooo12/SamaStylestore/internal/adapter/repo"
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/pricing"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIdem struct {
	mu        sync.Mutex
	locks     map[string]bool
	values    map[string]string
	recallErr error
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+"|"+key] {
		return false, nil
	}
	m.locks[scope+"|"+key] = true
	return true, nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope+"|"+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recallErr != nil {
		return "", false, m.recallErr
	}
	v, ok := m.values[scope+"|"+key]
	return v, ok, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+"|"+key)
	return nil
}

type recordingPublisher struct {
	started   []usecase.CheckoutStartedMsg
	confirmed []usecase.PaymentConfirmedMsg
	err       error
}

func (p *recordingPublisher) PublishCheckoutStarted(_ context.Context, msg usecase.CheckoutStartedMsg) error {
	p.started = append(p.started, msg)
	return p.err
}

func (p *recordingPublisher) PublishPaymentConfirmed(_ context.Context, msg usecase.PaymentConfirmedMsg) error {
	p.confirmed = append(p.confirmed, msg)
	return p.err
}

type checkoutFixture struct {
	carts    *usecase.CartService
	checkout *usecase.Checkout
	gateway  *payment.FakeGateway
	events   *recordingPublisher
	rec      *countingRecorder
}

func newCheckoutFixture() checkoutFixture {
	f := checkoutFixture{
		gateway: payment.NewFakeGateway(),
		events:  &recordingPublisher{},
		rec:     newCountingRecorder(),
	}
	f.carts, _ = newCartService(usecase.WithRecorder(f.rec))
	f.checkout = usecase.NewCheckout(f.carts, f.gateway, newMemIdem(), f.events)
	return f
}

func TestCreatePaymentIntent_ChargesCartTotal(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.carts.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)

	res, err := f.checkout.CreatePaymentIntent(ctx, "s1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, int64(54498), res.Amount.Cents())

	reqs := f.gateway.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(54498), reqs[0].AmountCents)
	assert.Equal(t, "usd", reqs[0].Currency)
	assert.Equal(t, "s1", reqs[0].SessionID)
	assert.Equal(t, []int64{54498}, f.rec.amounts)

	require.Len(t, f.events.started, 1)
	started := f.events.started[0]
	assert.Equal(t, res.IntentID, started.IntentID)
	require.Len(t, started.Lines, 1)
	assert.Equal(t, "249.99", started.Lines[0].UnitPrice)

	snap, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1, "intent creation keeps the cart")
}

func TestCreatePaymentIntent_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	_, err := f.checkout.CreatePaymentIntent(context.Background(), "s1", "k")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, f.gateway.Requests())

	// the key is released, so a retry after filling the cart works
	_, err = f.carts.AddToCart(context.Background(), "s1", 3, 1)
	require.NoError(t, err)
	_, err = f.checkout.CreatePaymentIntent(context.Background(), "s1", "k")
	assert.NoError(t, err)
}

func TestCreatePaymentIntent_OversizedTotalNeverReachesGateway(t *testing.T) {
	catalog := repo.NewMemoryCatalog([]domain.Product{
		{ID: 1, Name: "Gallery Installation", Price: decimal.RequireFromString("100000000000000000")},
	}, nil)
	carts := usecase.NewCartService(repo.NewMemoryCartStore(), catalog, pricing.New())
	gateway := payment.NewFakeGateway()
	checkout := usecase.NewCheckout(carts, gateway, newMemIdem(), nil)
	ctx := context.Background()

	_, err := carts.AddToCart(ctx, "s1", 1, 1000)
	require.NoError(t, err)

	_, err = checkout.CreatePaymentIntent(ctx, "s1", "k1")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Empty(t, gateway.Requests())

	// the key was released, so a later retry is not reported as a duplicate
	_, err = checkout.CreatePaymentIntent(ctx, "s1", "k1")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCreatePaymentIntent_Idempotent(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 2, 1)
	require.NoError(t, err)

	first, err := f.checkout.CreatePaymentIntent(ctx, "s1", "key-1")
	require.NoError(t, err)
	again, err := f.checkout.CreatePaymentIntent(ctx, "s1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ClientSecret, again.ClientSecret)
	assert.Equal(t, first.IntentID, again.IntentID)
	assert.Equal(t, first.Amount.Cents(), again.Amount.Cents())
	assert.Len(t, f.gateway.Requests(), 1)

	// keys are scoped per session
	_, err = f.carts.AddToCart(ctx, "s2", 2, 1)
	require.NoError(t, err)
	_, err = f.checkout.CreatePaymentIntent(ctx, "s2", "key-1")
	require.NoError(t, err)
	assert.Len(t, f.gateway.Requests(), 2)
}

func TestCreatePaymentIntent_InFlightDuplicate(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 2, 1)
	require.NoError(t, err)

	idem := newMemIdem()
	_, _ = idem.TryLock(ctx, "s1", "busy")
	uc := usecase.NewCheckout(f.carts, f.gateway, idem, nil)

	_, err = uc.CreatePaymentIntent(ctx, "s1", "busy")
	assert.ErrorIs(t, err, usecase.ErrDuplicate)
	assert.Empty(t, f.gateway.Requests())
}

func TestCreatePaymentIntent_GatewayError(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 2, 1)
	require.NoError(t, err)

	f.gateway.Err = errors.New("declined")
	_, err = f.checkout.CreatePaymentIntent(ctx, "s1", "k")
	assert.ErrorIs(t, err, usecase.ErrPayment)
	assert.Empty(t, f.events.started)

	snap, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)

	// released key can be retried once the provider recovers
	f.gateway.Err = nil
	_, err = f.checkout.CreatePaymentIntent(ctx, "s1", "k")
	assert.NoError(t, err)
}

func TestCreatePaymentIntent_PublishFailureIsNotFatal(t *testing.T) {
	f := newCheckoutFixture()
	f.events.err = errors.New("broker down")
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 2, 1)
	require.NoError(t, err)

	_, err = f.checkout.CreatePaymentIntent(ctx, "s1", "")
	assert.NoError(t, err)
}

func TestConfirmPayment(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)

	cleared, err := f.checkout.ConfirmPayment(ctx, usecase.PaymentStatusMsg{SessionID: "s1", Status: "requires_payment_method"})
	require.NoError(t, err)
	assert.False(t, cleared)
	snap, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
	assert.Empty(t, f.events.confirmed)

	_, err = f.checkout.ConfirmPayment(ctx, usecase.PaymentStatusMsg{Status: "succeeded"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	cleared, err = f.checkout.ConfirmPayment(ctx, usecase.PaymentStatusMsg{
		IntentID: "pi_1", SessionID: "s1", Cents: 54498, Currency: "usd", Status: "Succeeded",
	})
	require.NoError(t, err)
	assert.True(t, cleared)
	snap, err = f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	require.Len(t, f.events.confirmed, 1)
	assert.Equal(t, "pi_1", f.events.confirmed[0].IntentID)
}

func TestConfirmPayment_CartChangedAfterIntentIsKept(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	_, err := f.carts.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)
	res, err := f.checkout.CreatePaymentIntent(ctx, "s1", "")
	require.NoError(t, err)

	_, err = f.carts.AddToCart(ctx, "s1", 3, 1)
	require.NoError(t, err)

	cleared, err := f.checkout.ConfirmPayment(ctx, usecase.PaymentStatusMsg{
		IntentID: res.IntentID, SessionID: "s1", Cents: res.Amount.Cents(), Currency: "usd", Status: "succeeded",
	})
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Empty(t, f.events.confirmed)

	snap, err := f.carts.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 2)
}

func TestCreatePaymentIntent_RecallFailureFallsThrough(t *testing.T) {
	f := newCheckoutFixture()
	idem := newMemIdem()
	idem.recallErr = errors.New("redis down")
	checkout := usecase.NewCheckout(f.carts, f.gateway, idem, nil)
	var logs bytes.Buffer
	ctx := logging.WithCtx(context.Background(), slog.New(slog.NewJSONHandler(&logs, nil)))

	_, err := f.carts.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)

	res, err := checkout.CreatePaymentIntent(ctx, "s1", "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(54498), res.Amount.Cents())
	assert.Len(t, f.gateway.Requests(), 1)
	assert.Contains(t, logs.String(), "idempotency recall failed")
	assert.Contains(t, logs.String(), "redis down")
}
