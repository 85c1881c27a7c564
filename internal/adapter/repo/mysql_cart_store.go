package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
)

// MySQLCartStore persists line items in the cart_items table. The unique key
// on (session_id, product_id) makes the upsert atomic per key.
type MySQLCartStore struct{ db *sql.DB }

func NewMySQLCartStore(db *sql.DB) *MySQLCartStore { return &MySQLCartStore{db: db} }

const selectLine = `SELECT id, session_id, product_id, quantity FROM cart_items`

func (r *MySQLCartStore) ListLineItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, selectLine+` WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.SessionID, &li.ProductID, &li.Quantity); err != nil {
			return nil, err
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (r *MySQLCartStore) FindLineItem(ctx context.Context, id int64) (domain.LineItem, error) {
	row := r.db.QueryRowContext(ctx, selectLine+` WHERE id = ?`, id)
	return scanLine(row, fmt.Sprintf("line item %d", id))
}

func (r *MySQLCartStore) FindLineItemByProduct(ctx context.Context, sessionID string, productID int64) (domain.LineItem, error) {
	row := r.db.QueryRowContext(ctx, selectLine+` WHERE session_id = ? AND product_id = ?`, sessionID, productID)
	return scanLine(row, fmt.Sprintf("no line for product %d", productID))
}

// upsertLine only touches an existing row while the merged quantity stays
// within the cap; assignments run left to right, so updated_at is decided
// before quantity changes. An untouched row reports zero affected rows.
const upsertLine = `
INSERT INTO cart_items (session_id, product_id, quantity, created_at, updated_at)
VALUES (?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
  updated_at = IF(quantity + VALUES(quantity) <= ?, NOW(), updated_at),
  quantity   = IF(quantity + VALUES(quantity) <= ?, quantity + VALUES(quantity), quantity)`

func (r *MySQLCartStore) UpsertLineItem(ctx context.Context, sessionID string, productID int64, delta int) (li domain.LineItem, err error) {
	if err := domain.ValidateQuantity(delta); err != nil {
		return domain.LineItem{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.LineItem{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, upsertLine, sessionID, productID, delta, domain.MaxQuantity, domain.MaxQuantity)
	if err != nil {
		return domain.LineItem{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.LineItem{}, err
	}

	row := tx.QueryRowContext(ctx, selectLine+` WHERE session_id = ? AND product_id = ?`, sessionID, productID)
	if li, err = scanLine(row, fmt.Sprintf("no line for product %d", productID)); err != nil {
		return domain.LineItem{}, err
	}
	if affected == 0 {
		err = domain.ValidateMerge(li.Quantity, delta)
		if err == nil {
			err = fmt.Errorf("upsert product %d: row not changed", productID)
		}
		return domain.LineItem{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.LineItem{}, err
	}
	return li, nil
}

func (r *MySQLCartStore) SetQuantity(ctx context.Context, id int64, quantity int) (li domain.LineItem, err error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.LineItem{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.LineItem{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, selectLine+` WHERE id = ? FOR UPDATE`, id)
	if li, err = scanLine(row, fmt.Sprintf("line item %d", id)); err != nil {
		return domain.LineItem{}, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE cart_items SET quantity = ?, updated_at = NOW() WHERE id = ?`, quantity, id); err != nil {
		return domain.LineItem{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.LineItem{}, err
	}
	li.Quantity = quantity
	return li, nil
}

func (r *MySQLCartStore) RemoveLineItem(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *MySQLCartStore) ClearSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID)
	return err
}

func (r *MySQLCartStore) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func scanLine(row *sql.Row, what string) (domain.LineItem, error) {
	var li domain.LineItem
	if err := row.Scan(&li.ID, &li.SessionID, &li.ProductID, &li.Quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LineItem{}, fmt.Errorf("%w: %s", domain.ErrNotFound, what)
		}
		return domain.LineItem{}, err
	}
	return li, nil
}

var _ usecase.CartStore = (*MySQLCartStore)(nil)
