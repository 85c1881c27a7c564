package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/shopspring/decimal"
)

// MemoryCatalog is a read-mostly product table. Delete exists so operators
// (and tests) can retire a product that carts may still reference.
type MemoryCatalog struct {
	mu         sync.RWMutex
	products   map[int64]domain.Product
	categories []domain.Category
}

// NewMemoryCatalog loads products, leaving out any that fail Validate.
func NewMemoryCatalog(products []domain.Product, categories []domain.Category) *MemoryCatalog {
	c := &MemoryCatalog{
		products:   make(map[int64]domain.Product, len(products)),
		categories: append([]domain.Category(nil), categories...),
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			logging.New("catalog").Warn("product skipped", "product_id", p.ID, "err", err)
			continue
		}
		c.products[p.ID] = p
	}
	return c
}

// NewSeededCatalog returns the storefront's launch collection.
func NewSeededCatalog() *MemoryCatalog {
	return NewMemoryCatalog(SeedProducts(), SeedCategories())
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	return p, nil
}

func (c *MemoryCatalog) GetProducts(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ListProducts returns all products ordered by id.
func (c *MemoryCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Category{}, c.categories...), nil
}

func (c *MemoryCatalog) Delete(id int64) {
	c.mu.Lock()
	delete(c.products, id)
	c.mu.Unlock()
}

func SeedCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Name: "Pendant Lights", Description: "Elegant overhead lighting solutions", Slug: "pendant-lights"},
		{ID: 2, Name: "Chandeliers", Description: "Statement pieces for any space", Slug: "chandeliers"},
		{ID: 3, Name: "Wall Sconces", Description: "Stylish wall-mounted options", Slug: "wall-sconces"},
		{ID: 4, Name: "Floor Lamps", Description: "Statement standing lights", Slug: "floor-lamps"},
	}
}

func SeedProducts() []domain.Product {
	p := func(id int64, name, desc, slug, price string, cat int64, rating float64, featured bool) domain.Product {
		return domain.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Slug:        slug,
			Price:       decimal.RequireFromString(price),
			CategoryID:  cat,
			Rating:      rating,
			Featured:    featured,
		}
	}
	return []domain.Product{
		p(1, "Nova Pendant Light", "Modern geometric pendant with LED", "nova-pendant-light", "249.99", 1, 4.8, true),
		p(2, "Orbital Chandelier", "Circular modern design with 8 lights", "orbital-chandelier", "399.99", 2, 4.9, true),
		p(3, "Lunar Wall Sconce", "Minimalist swing arm wall light", "lunar-wall-sconce", "129.99", 3, 4.7, true),
		p(4, "Astra Floor Lamp", "Adjustable angle modern floor lamp", "astra-floor-lamp", "179.99", 4, 4.6, true),
		p(5, "Stellar Pendant", "Star-inspired hanging light fixture", "stellar-pendant", "219.99", 1, 4.5, false),
		p(6, "Cosmos Chandelier", "Galaxy-themed chandelier with multiple lights", "cosmos-chandelier", "499.99", 2, 4.8, false),
		p(7, "Eclipse Sconce", "Modern wall light with ambient glow", "eclipse-sconce", "149.99", 3, 4.6, false),
		p(8, "Nebula Floor Lamp", "Cloud-like diffused lighting floor lamp", "nebula-floor-lamp", "239.99", 4, 4.7, false),
	}
}

var (
	_ usecase.Catalog        = (*MemoryCatalog)(nil)
	_ usecase.CatalogBrowser = (*MemoryCatalog)(nil)
)
