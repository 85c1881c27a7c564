package usecase

import (
	"context"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
)

// CartStore holds line items keyed by session. Implementations must serialize
// mutations per (session, product) and per line id, and never reuse ids.
type CartStore interface {
	// ListLineItems returns the session's lines in insertion order. An unknown
	// session is an empty cart, not an error.
	ListLineItems(ctx context.Context, sessionID string) ([]domain.LineItem, error)
	FindLineItem(ctx context.Context, id int64) (domain.LineItem, error)
	FindLineItemByProduct(ctx context.Context, sessionID string, productID int64) (domain.LineItem, error)
	// UpsertLineItem adds delta to the existing line or creates one with
	// quantity delta. delta must be >= 1.
	UpsertLineItem(ctx context.Context, sessionID string, productID int64, delta int) (domain.LineItem, error)
	SetQuantity(ctx context.Context, id int64, quantity int) (domain.LineItem, error)
	RemoveLineItem(ctx context.Context, id int64) (bool, error)
	ClearSession(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// Catalog is the read-only product source.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	// GetProducts returns the subset of ids that resolve; missing ids are
	// simply absent from the map.
	GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

// CatalogBrowser lists what the storefront shows.
type CatalogBrowser interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// Pricer turns joined lines into totals.
type Pricer interface {
	Compute(lines []domain.CartLine) domain.Totals
}

type PaymentIntentRequest struct {
	SessionID      string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway is the external payment collaborator. The core only supplies
// the amount and passes the opaque client secret through.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

// EventPublisher announces checkout milestones to downstream services.
type EventPublisher interface {
	PublishCheckoutStarted(ctx context.Context, msg CheckoutStartedMsg) error
	PublishPaymentConfirmed(ctx context.Context, msg PaymentConfirmedMsg) error
}

// Recorder receives cart-level measurements. A nil Recorder is allowed.
type Recorder interface {
	Mutation(op, result string)
	OrphanedLine()
	CheckoutAmount(cents int64)
}
