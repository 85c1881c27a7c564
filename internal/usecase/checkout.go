package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrDuplicate = errors.New("duplicate idempotency key")
	ErrPayment   = errors.New("payment provider error")
)

type PaymentIntentResult struct {
	Amount       domain.CheckoutAmount
	IntentID     string
	ClientSecret string
}

type recalledIntent struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Cents        int64  `json:"cents"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

// Checkout hands the cart total to the payment collaborator and reacts to its
// confirmation. It never clears a cart on its own initiative.
type Checkout struct {
	carts   *CartService
	gateway PaymentGateway
	idem    IdempotencyStore // optional
	events  EventPublisher   // optional
}

func NewCheckout(carts *CartService, gateway PaymentGateway, idem IdempotencyStore, events EventPublisher) *Checkout {
	return &Checkout{carts: carts, gateway: gateway, idem: idem, events: events}
}

// CreatePaymentIntent prices the cart and asks the provider for an intent for
// exactly that amount. With an idempotency key, a retried request gets the
// intent created by the first one.
func (uc *Checkout) CreatePaymentIntent(ctx context.Context, sessionID, idemKey string) (res PaymentIntentResult, err error) {
	ctx, span := uc.carts.start(ctx, "Checkout.CreatePaymentIntent", sessionID)
	defer func() { finish(span, err) }()

	useIdem := uc.idem != nil && idemKey != ""
	if useIdem {
		// Fast path: idempotency recall
		raw, ok, err := uc.idem.Recall(ctx, sessionID, idemKey)
		if err != nil {
			logging.FromCtx(ctx).Warn("idempotency recall failed", "session_id", sessionID, "err", err)
		}
		if ok {
			if r, ok := decodeRecalled(raw, sessionID); ok {
				return r, nil
			}
		}
		locked, err := uc.idem.TryLock(ctx, sessionID, idemKey)
		if err != nil {
			return PaymentIntentResult{}, err
		}
		if !locked {
			return PaymentIntentResult{}, ErrDuplicate
		}
	}

	res, err = uc.createIntent(ctx, sessionID, idemKey)
	if err != nil {
		if useIdem {
			_ = uc.idem.Release(ctx, sessionID, idemKey)
		}
		return PaymentIntentResult{}, err
	}

	if useIdem {
		raw, _ := json.Marshal(recalledIntent{
			IntentID:     res.IntentID,
			ClientSecret: res.ClientSecret,
			Cents:        res.Amount.Cents(),
			Amount:       res.Amount.Amount.String(),
			Currency:     res.Amount.Currency,
		})
		_ = uc.idem.Remember(ctx, sessionID, idemKey, string(raw))
	}
	return res, nil
}

func (uc *Checkout) createIntent(ctx context.Context, sessionID, idemKey string) (PaymentIntentResult, error) {
	snap, amt, err := uc.carts.checkoutSnapshot(ctx, sessionID)
	if err != nil {
		return PaymentIntentResult{}, err
	}

	cents := amt.Cents()
	intent, err := uc.gateway.CreatePaymentIntent(ctx, PaymentIntentRequest{
		SessionID:      sessionID,
		AmountCents:    cents,
		Currency:       amt.Currency,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return PaymentIntentResult{}, fmt.Errorf("%w: %w", ErrPayment, err)
	}
	uc.carts.rec.CheckoutAmount(cents)

	if uc.events != nil {
		msg := CheckoutStartedMsg{
			SessionID: sessionID,
			IntentID:  intent.ID,
			Cents:     cents,
			Currency:  amt.Currency,
			Lines:     make([]CheckoutLine, 0, len(snap.Items)),
		}
		for _, l := range snap.Items {
			msg.Lines = append(msg.Lines, CheckoutLine{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.Product.Price.String(),
			})
		}
		if err := uc.events.PublishCheckoutStarted(ctx, msg); err != nil {
			logging.FromCtx(ctx).Warn("publish checkout started failed", "session_id", sessionID, "err", err)
		}
	}

	return PaymentIntentResult{Amount: amt, IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmPayment is the only path that clears a cart after checkout. It
// reports whether the cart was cleared; non-success statuses, and a cart whose
// total no longer matches the charged cents, leave it intact.
func (uc *Checkout) ConfirmPayment(ctx context.Context, msg PaymentStatusMsg) (cleared bool, err error) {
	ctx, span := uc.carts.start(ctx, "Checkout.ConfirmPayment", msg.SessionID)
	span.SetAttributes(attribute.String("payment.intent_id", msg.IntentID), attribute.String("payment.status", msg.Status))
	defer func() { finish(span, err) }()

	log := logging.FromCtx(ctx).With("session_id", msg.SessionID, "intent_id", msg.IntentID)
	if msg.SessionID == "" {
		return false, fmt.Errorf("%w: payment status without session id", domain.ErrInvalidArgument)
	}
	if !succeeded(msg.Status) {
		log.Info("payment not successful, cart kept", "status", msg.Status)
		return false, nil
	}

	// A cart edited after the intent was created holds lines nobody paid for.
	if amt, err := uc.carts.PrepareCheckout(ctx, msg.SessionID); err == nil && msg.Cents > 0 && amt.Cents() != msg.Cents {
		log.Warn("cart changed after payment intent, cart kept", "charged_cents", msg.Cents, "cart_cents", amt.Cents())
		return false, nil
	}

	if _, err := uc.carts.EmptyCart(ctx, msg.SessionID); err != nil {
		return false, err
	}
	log.Info("payment confirmed, cart cleared", "cents", msg.Cents)

	if uc.events != nil {
		if err := uc.events.PublishPaymentConfirmed(ctx, PaymentConfirmedMsg{
			SessionID: msg.SessionID,
			IntentID:  msg.IntentID,
			Cents:     msg.Cents,
			Currency:  msg.Currency,
		}); err != nil {
			log.Warn("publish payment confirmed failed", "err", err)
		}
	}
	return true, nil
}

func succeeded(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "success":
		return true
	}
	return false
}

func decodeRecalled(raw, sessionID string) (PaymentIntentResult, bool) {
	var r recalledIntent
	if err := json.Unmarshal([]byte(raw), &r); err != nil || r.ClientSecret == "" {
		return PaymentIntentResult{}, false
	}
	amt := domain.CheckoutAmount{SessionID: sessionID, Currency: r.Currency}
	if d, err := decimal.NewFromString(r.Amount); err == nil {
		amt.Amount = d
	}
	return PaymentIntentResult{Amount: amt, IntentID: r.IntentID, ClientSecret: r.ClientSecret}, true
}
