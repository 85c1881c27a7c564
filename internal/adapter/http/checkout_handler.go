package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/adapter/http/middleware"
	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	carts    *usecase.CartService
	checkout *usecase.Checkout
	timeout  time.Duration
}

func NewCheckoutHandler(carts *usecase.CartService, checkout *usecase.Checkout, timeout time.Duration) *CheckoutHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &CheckoutHandler{carts: carts, checkout: checkout, timeout: timeout}
}

type paymentIntentResp struct {
	ClientSecret string `json:"clientSecret"`
	IntentID     string `json:"intentId"`
	checkoutDTO
}

// POST /api/checkout
func (h *CheckoutHandler) PrepareCheckout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	amt, err := h.carts.PrepareCheckout(ctx, middleware.SessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutDTO(amt))
}

// POST /api/create-payment-intent
// Any amount in the body is ignored; the charge is always the priced cart.
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	idemKey := c.GetHeader("X-Idempotency-Key") // prevent duplicated intents
	if idemKey == "" {
		idemKey = c.GetHeader("Idempotency-Key")
	}

	// provider round trip gets more room than a cart call
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*h.timeout)
	defer cancel()

	res, err := h.checkout.CreatePaymentIntent(ctx, middleware.SessionID(c), idemKey)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentIntentResp{
		ClientSecret: res.ClientSecret,
		IntentID:     res.IntentID,
		checkoutDTO:  toCheckoutDTO(res.Amount),
	})
}

// POST /api/payments/confirm, called by the payment relay with a bearer token.
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	var msg usecase.PaymentStatusMsg
	if err := c.ShouldBindJSON(&msg); err != nil {
		writeError(c, fmt.Errorf("%w: invalid payment status body", domain.ErrInvalidArgument))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cleared, err := h.checkout.ConfirmPayment(ctx, msg)
	if err != nil {
		writeError(c, err)
		return
	}
	logging.From(c).Info("payment status received",
		"client_id", middleware.ClientID(c), "session_id", msg.SessionID, "status", msg.Status, "cleared", cleared)
	c.JSON(http.StatusOK, gin.H{"sessionId": msg.SessionID, "cleared": cleared})
}
