package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/adapter/http/middleware"
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts   *usecase.CartService
	timeout time.Duration
}

func NewCartHandler(carts *usecase.CartService, timeout time.Duration) *CartHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &CartHandler{carts: carts, timeout: timeout}
}

type addToCartReq struct {
	ProductID *int64 `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateQuantityReq struct {
	Quantity *int `json:"quantity"`
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snap, err := h.carts.GetCart(ctx, middleware.SessionID(c))
	h.respond(c, snap, err)
}

// POST /api/cart {productId, quantity?}
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req addToCartReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == nil {
		writeError(c, fmt.Errorf("%w: body must be {productId, quantity?}", domain.ErrInvalidArgument))
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snap, err := h.carts.AddToCart(ctx, middleware.SessionID(c), *req.ProductID, qty)
	h.respond(c, snap, err)
}

// PATCH /api/cart/:id {quantity}
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}
	var req updateQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		writeError(c, fmt.Errorf("%w: body must be {quantity}", domain.ErrInvalidArgument))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snap, err := h.carts.UpdateQuantity(ctx, middleware.SessionID(c), id, *req.Quantity)
	h.respond(c, snap, err)
}

// DELETE /api/cart/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	id, ok := lineID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snap, err := h.carts.RemoveFromCart(ctx, middleware.SessionID(c), id)
	h.respond(c, snap, err)
}

// DELETE /api/cart
func (h *CartHandler) EmptyCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	snap, err := h.carts.EmptyCart(ctx, middleware.SessionID(c))
	h.respond(c, snap, err)
}

func (h *CartHandler) respond(c *gin.Context, snap domain.CartSnapshot, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartDTO(snap))
}

func lineID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, fmt.Errorf("%w: line item id must be an integer", domain.ErrInvalidArgument))
		return 0, false
	}
	return id, true
}
