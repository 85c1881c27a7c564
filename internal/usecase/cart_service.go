package usecase

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OrphanPolicy decides what happens to a line whose product left the catalog.
type OrphanPolicy string

const (
	// OrphanDrop leaves the line out of the snapshot and logs it.
	OrphanDrop OrphanPolicy = "drop"
	// OrphanFail fails the read with ErrInconsistentState.
	OrphanFail OrphanPolicy = "fail"
)

func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(s) {
	case OrphanDrop, OrphanFail:
		return OrphanPolicy(s), nil
	case "":
		return OrphanDrop, nil
	}
	return "", fmt.Errorf("unknown orphan policy %q", s)
}

// CartService answers every cart operation with a freshly priced snapshot.
type CartService struct {
	store    CartStore
	catalog  Catalog
	pricer   Pricer
	orphans  OrphanPolicy
	currency string
	rec      Recorder
	tracer   trace.Tracer
}

type CartOption func(*CartService)

func WithOrphanPolicy(p OrphanPolicy) CartOption { return func(s *CartService) { s.orphans = p } }
func WithCurrency(c string) CartOption           { return func(s *CartService) { s.currency = c } }
func WithRecorder(r Recorder) CartOption         { return func(s *CartService) { s.rec = r } }

func NewCartService(store CartStore, catalog Catalog, pricer Pricer, opts ...CartOption) *CartService {
	s := &CartService{
		store:    store,
		catalog:  catalog,
		pricer:   pricer,
		orphans:  OrphanDrop,
		currency: "usd",
		tracer:   otel.Tracer("cart-api/usecase"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rec == nil {
		s.rec = noopRecorder{}
	}
	return s
}

func (s *CartService) Currency() string { return s.currency }

func (s *CartService) GetCart(ctx context.Context, sessionID string) (snap domain.CartSnapshot, err error) {
	ctx, span := s.start(ctx, "CartService.GetCart", sessionID)
	defer func() { finish(span, err) }()

	return s.snapshot(ctx, sessionID)
}

func (s *CartService) AddToCart(ctx context.Context, sessionID string, productID int64, quantity int) (snap domain.CartSnapshot, err error) {
	ctx, span := s.start(ctx, "CartService.AddToCart", sessionID)
	span.SetAttributes(attribute.Int64("cart.product_id", productID), attribute.Int("cart.quantity", quantity))
	defer func() {
		s.rec.Mutation("add", resultOf(err))
		finish(span, err)
	}()

	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CartSnapshot{}, fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
		}
		return domain.CartSnapshot{}, err
	}
	if _, err := s.store.UpsertLineItem(ctx, sessionID, productID, quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, lineID int64, quantity int) (snap domain.CartSnapshot, err error) {
	ctx, span := s.start(ctx, "CartService.UpdateQuantity", sessionID)
	span.SetAttributes(attribute.Int64("cart.line_id", lineID), attribute.Int("cart.quantity", quantity))
	defer func() {
		s.rec.Mutation("update", resultOf(err))
		finish(span, err)
	}()

	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	if err := s.authorize(ctx, sessionID, lineID); err != nil {
		return domain.CartSnapshot{}, err
	}
	if _, err := s.store.SetQuantity(ctx, lineID, quantity); err != nil {
		return domain.CartSnapshot{}, err
	}
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) RemoveFromCart(ctx context.Context, sessionID string, lineID int64) (snap domain.CartSnapshot, err error) {
	ctx, span := s.start(ctx, "CartService.RemoveFromCart", sessionID)
	span.SetAttributes(attribute.Int64("cart.line_id", lineID))
	defer func() {
		s.rec.Mutation("remove", resultOf(err))
		finish(span, err)
	}()

	if err := s.authorize(ctx, sessionID, lineID); err != nil {
		return domain.CartSnapshot{}, err
	}
	if _, err := s.store.RemoveLineItem(ctx, lineID); err != nil {
		return domain.CartSnapshot{}, err
	}
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) EmptyCart(ctx context.Context, sessionID string) (snap domain.CartSnapshot, err error) {
	ctx, span := s.start(ctx, "CartService.EmptyCart", sessionID)
	defer func() {
		s.rec.Mutation("clear", resultOf(err))
		finish(span, err)
	}()

	if err := s.store.ClearSession(ctx, sessionID); err != nil {
		return domain.CartSnapshot{}, err
	}
	return s.snapshot(ctx, sessionID)
}

// PrepareCheckout returns the amount the payment provider is told to charge.
// It is always taken from a fresh snapshot, never from the client.
func (s *CartService) PrepareCheckout(ctx context.Context, sessionID string) (amt domain.CheckoutAmount, err error) {
	ctx, span := s.start(ctx, "CartService.PrepareCheckout", sessionID)
	defer func() { finish(span, err) }()

	_, amt, err = s.checkoutSnapshot(ctx, sessionID)
	return amt, err
}

func (s *CartService) checkoutSnapshot(ctx context.Context, sessionID string) (domain.CartSnapshot, domain.CheckoutAmount, error) {
	snap, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return domain.CartSnapshot{}, domain.CheckoutAmount{}, err
	}
	amt := domain.CheckoutAmount{
		SessionID: sessionID,
		Amount:    snap.Total,
		Currency:  s.currency,
	}
	if err := amt.Validate(); err != nil {
		return domain.CartSnapshot{}, domain.CheckoutAmount{}, err
	}
	return snap, amt, nil
}

// authorize checks the line exists and belongs to the caller's session.
func (s *CartService) authorize(ctx context.Context, sessionID string, lineID int64) error {
	item, err := s.store.FindLineItem(ctx, lineID)
	if err != nil {
		return err
	}
	if item.SessionID != sessionID {
		return fmt.Errorf("%w: line item %d belongs to another session", domain.ErrForbidden, lineID)
	}
	return nil
}

func (s *CartService) snapshot(ctx context.Context, sessionID string) (domain.CartSnapshot, error) {
	items, err := s.store.ListLineItems(ctx, sessionID)
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	lines := make([]domain.CartLine, 0, len(items))
	if len(items) > 0 {
		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		products, err := s.catalog.GetProducts(ctx, ids)
		if err != nil {
			return domain.CartSnapshot{}, err
		}
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok {
				if s.orphans == OrphanFail {
					return domain.CartSnapshot{}, fmt.Errorf("%w: line %d references missing product %d",
						domain.ErrInconsistentState, it.ID, it.ProductID)
				}
				s.rec.OrphanedLine()
				logging.FromCtx(ctx).Warn("dropping orphaned cart line",
					"session_id", sessionID, "line_id", it.ID, "product_id", it.ProductID)
				continue
			}
			lines = append(lines, domain.CartLine{LineItem: it, Product: p})
		}
	}

	return domain.CartSnapshot{
		SessionID: sessionID,
		Items:     lines,
		Totals:    s.pricer.Compute(lines),
	}, nil
}

func (s *CartService) start(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("cart.session_id", sessionID)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInconsistentState):
		return "inconsistent"
	default:
		return "error"
	}
}

type noopRecorder struct{}

func (noopRecorder) Mutation(string, string) {}
func (noopRecorder) OrphanedLine()           {}
func (noopRecorder) CheckoutAmount(int64)    {}
