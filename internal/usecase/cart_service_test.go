package usecase_test

import (
	"context"
	"math"
	"testing"

	"github.com/7amooo12/SamaStylestore/internal/adapter/repo"
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/pricing"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type countingRecorder struct {
	mutations map[string]int
	orphans   int
	amounts   []int64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{mutations: map[string]int{}}
}

func (r *countingRecorder) Mutation(op, result string) { r.mutations[op+"/"+result]++ }
func (r *countingRecorder) OrphanedLine()              { r.orphans++ }
func (r *countingRecorder) CheckoutAmount(cents int64) { r.amounts = append(r.amounts, cents) }

func newCartService(opts ...usecase.CartOption) (*usecase.CartService, *repo.MemoryCatalog) {
	catalog := repo.NewSeededCatalog()
	return usecase.NewCartService(repo.NewMemoryCartStore(), catalog, pricing.New(), opts...), catalog
}

func TestAddToCart_ReferenceTotals(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	snap, err := svc.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, "Nova Pendant Light", snap.Items[0].Product.Name)
	assert.True(t, decimal.RequireFromString("499.98").Equal(snap.Subtotal))
	assert.True(t, decimal.RequireFromString("44.9982").Equal(snap.Tax))
	assert.True(t, snap.Shipping.IsZero())
	assert.True(t, decimal.RequireFromString("544.98").Equal(snap.Total))
	assert.Equal(t, 2, snap.ItemCount())
}

func TestAddToCart_MergesSameProduct(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "s1", 3, 1)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "s1", 4, 1)
	require.NoError(t, err)
	snap, err := svc.AddToCart(ctx, "s1", 3, 2)
	require.NoError(t, err)

	require.Len(t, snap.Items, 2)
	assert.Equal(t, int64(3), snap.Items[0].ProductID, "insertion order kept")
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, int64(4), snap.Items[1].ProductID)
}

func TestAddToCart_Rejects(t *testing.T) {
	rec := newCountingRecorder()
	svc, _ := newCartService(usecase.WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "s1", 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.AddToCart(ctx, "s1", 1, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.AddToCart(ctx, "s1", 999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap, err := svc.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.Equal(t, 2, rec.mutations["add/invalid"])
	assert.Equal(t, 1, rec.mutations["add/not_found"])
}

func TestAddToCart_QuantityCap(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "s1", 1, math.MaxInt)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.AddToCart(ctx, "s1", 1, domain.MaxQuantity)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "s1", 1, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	snap, err := svc.GetCart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, domain.MaxQuantity, snap.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("249.99").Mul(decimal.NewFromInt(domain.MaxQuantity)).Equal(snap.Subtotal))

	_, err = svc.UpdateQuantity(ctx, "s1", snap.Items[0].ID, domain.MaxQuantity+1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGetCart_UnknownSessionIsEmpty(t *testing.T) {
	svc, _ := newCartService()
	snap, err := svc.GetCart(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
	assert.True(t, snap.Total.IsZero())
	assert.NotNil(t, snap.Items)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	snap, err := svc.AddToCart(ctx, "owner", 2, 1)
	require.NoError(t, err)
	line := snap.Items[0].ID

	snap, err = svc.UpdateQuantity(ctx, "owner", line, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("1999.95").Equal(snap.Subtotal))

	_, err = svc.UpdateQuantity(ctx, "owner", line, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.UpdateQuantity(ctx, "owner", line+100, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.UpdateQuantity(ctx, "intruder", line, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	snap, err = svc.GetCart(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Items[0].Quantity)
}

func TestRemoveFromCart(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "s1", 1, 1)
	require.NoError(t, err)
	snap, err := svc.AddToCart(ctx, "s1", 2, 1)
	require.NoError(t, err)
	first := snap.Items[0].ID

	_, err = svc.RemoveFromCart(ctx, "s2", first)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	snap, err = svc.RemoveFromCart(ctx, "s1", first)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(2), snap.Items[0].ProductID)

	_, err = svc.RemoveFromCart(ctx, "s1", first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmptyCart_OnlyCallerSession(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "a", 1, 1)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, "b", 1, 1)
	require.NoError(t, err)

	snap, err := svc.EmptyCart(ctx, "a")
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	// idempotent
	_, err = svc.EmptyCart(ctx, "a")
	require.NoError(t, err)

	other, err := svc.GetCart(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, other.Items, 1)
}

func TestSnapshot_OrphanPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("drop", func(t *testing.T) {
		rec := newCountingRecorder()
		svc, catalog := newCartService(usecase.WithRecorder(rec))
		_, err := svc.AddToCart(ctx, "s1", 1, 1)
		require.NoError(t, err)
		_, err = svc.AddToCart(ctx, "s1", 2, 1)
		require.NoError(t, err)

		catalog.Delete(2)
		snap, err := svc.GetCart(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, snap.Items, 1)
		assert.True(t, decimal.RequireFromString("249.99").Equal(snap.Subtotal))
		assert.Equal(t, 1, rec.orphans)
	})

	t.Run("fail", func(t *testing.T) {
		svc, catalog := newCartService(usecase.WithOrphanPolicy(usecase.OrphanFail))
		_, err := svc.AddToCart(ctx, "s1", 2, 1)
		require.NoError(t, err)

		catalog.Delete(2)
		_, err = svc.GetCart(ctx, "s1")
		assert.ErrorIs(t, err, domain.ErrInconsistentState)
	})
}

func TestParseOrphanPolicy(t *testing.T) {
	p, err := usecase.ParseOrphanPolicy("")
	require.NoError(t, err)
	assert.Equal(t, usecase.OrphanDrop, p)
	p, err = usecase.ParseOrphanPolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, usecase.OrphanFail, p)
	_, err = usecase.ParseOrphanPolicy("keep")
	assert.Error(t, err)
}

func TestPrepareCheckout(t *testing.T) {
	svc, _ := newCartService(usecase.WithCurrency("eur"))
	ctx := context.Background()

	_, err := svc.PrepareCheckout(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.AddToCart(ctx, "s1", 1, 2)
	require.NoError(t, err)
	amt, err := svc.PrepareCheckout(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "eur", amt.Currency)
	assert.Equal(t, int64(54498), amt.Cents())

	// preparing never empties the cart
	snap, err := svc.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
}

func TestPrepareCheckout_TotalTooLargeToCharge(t *testing.T) {
	catalog := repo.NewMemoryCatalog([]domain.Product{
		{ID: 1, Name: "Gallery Installation", Price: decimal.RequireFromString("100000000000000000")},
	}, nil)
	svc := usecase.NewCartService(repo.NewMemoryCartStore(), catalog, pricing.New())
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "s1", 1, 1000)
	require.NoError(t, err)

	_, err = svc.PrepareCheckout(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAddToCart_ConcurrentSameProduct(t *testing.T) {
	svc, _ := newCartService()
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			_, err := svc.AddToCart(ctx, "s1", 1, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	snap, err := svc.GetCart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 100, snap.Items[0].Quantity)
}
