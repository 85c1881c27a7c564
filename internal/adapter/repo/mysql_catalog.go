package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
)

// MySQLCatalog reads the products and categories tables. Rows failing
// Product.Validate are treated as absent.
type MySQLCatalog struct{ db *sql.DB }

func NewMySQLCatalog(db *sql.DB) *MySQLCatalog { return &MySQLCatalog{db: db} }

const (
	selectProduct  = `SELECT id, name, description, slug, image, price, category_id, rating, featured FROM products`
	selectCategory = `SELECT id, name, description, slug, image FROM categories`
)

func (r *MySQLCatalog) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, selectProduct+` WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, err
	}
	if err := p.Validate(); err != nil {
		logging.FromCtx(ctx).Warn("invalid catalog row", "product_id", id, "err", err)
		return domain.Product{}, fmt.Errorf("%w: product %d unavailable", domain.ErrNotFound, id)
	}
	return p, nil
}

func (r *MySQLCatalog) GetProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := selectProduct + ` WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`

	err := r.eachProduct(ctx, q, args, func(p domain.Product) { out[p.ID] = p })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts returns all valid products ordered by id.
func (r *MySQLCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.eachProduct(ctx, selectProduct+` ORDER BY id`, nil, func(p domain.Product) { out = append(out, p) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MySQLCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, selectCategory+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Slug, &c.Image); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *MySQLCatalog) eachProduct(ctx context.Context, q string, args []any, fn func(domain.Product)) error {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			logging.FromCtx(ctx).Warn("invalid catalog row", "product_id", p.ID, "err", err)
			continue
		}
		fn(p)
	}
	return rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Slug, &p.Image, &p.Price, &p.CategoryID, &p.Rating, &p.Featured)
	return p, err
}

var (
	_ usecase.Catalog        = (*MySQLCatalog)(nil)
	_ usecase.CatalogBrowser = (*MySQLCatalog)(nil)
)
