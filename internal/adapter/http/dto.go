package http

import (
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/shopspring/decimal"
)

// money renders as a JSON number with exactly two decimals.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type productDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Slug        string  `json:"slug"`
	Image       string  `json:"image"`
	Price       money   `json:"price"`
	CategoryID  int64   `json:"categoryId"`
	Rating      float64 `json:"rating"`
	Featured    bool    `json:"featured"`
}

func toProductDTO(p domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Slug:        p.Slug,
		Image:       p.Image,
		Price:       money(p.Price),
		CategoryID:  p.CategoryID,
		Rating:      p.Rating,
		Featured:    p.Featured,
	}
}

type categoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	Image       string `json:"image"`
}

type cartItemDTO struct {
	ID        int64      `json:"id"`
	SessionID string     `json:"sessionId"`
	ProductID int64      `json:"productId"`
	Quantity  int        `json:"quantity"`
	Product   productDTO `json:"product"`
}

type cartDTO struct {
	SessionID string        `json:"sessionId"`
	Items     []cartItemDTO `json:"items"`
	ItemCount int           `json:"itemCount"`
	Subtotal  money         `json:"subtotal"`
	Tax       money         `json:"tax"`
	Shipping  money         `json:"shipping"`
	Total     money         `json:"total"`
}

func toCartDTO(s domain.CartSnapshot) cartDTO {
	out := cartDTO{
		SessionID: s.SessionID,
		Items:     make([]cartItemDTO, 0, len(s.Items)),
		ItemCount: s.ItemCount(),
		Subtotal:  money(s.Subtotal),
		Tax:       money(s.Tax),
		Shipping:  money(s.Shipping),
		Total:     money(s.Total),
	}
	for _, l := range s.Items {
		out.Items = append(out.Items, cartItemDTO{
			ID:        l.ID,
			SessionID: l.SessionID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product:   toProductDTO(l.Product),
		})
	}
	return out
}

type checkoutDTO struct {
	SessionID   string `json:"sessionId"`
	Amount      money  `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

func toCheckoutDTO(a domain.CheckoutAmount) checkoutDTO {
	return checkoutDTO{
		SessionID:   a.SessionID,
		Amount:      money(a.Amount),
		AmountCents: a.Cents(),
		Currency:    a.Currency,
	}
}
