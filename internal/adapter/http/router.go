package http

import (
	"context"
	"net/http"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/adapter/http/middleware"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the cart backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Cart          *CartHandler
	Products      *ProductHandler
	Checkout      *CheckoutHandler
	Token         *TokenHandler
	Authz         *middleware.Authz
	Webhook       *middleware.WebhookVerify
	Sessions      session.Provider
	SessionHeader string
	Ready         Pinger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if d.Ready != nil {
			if err := d.Ready.Ping(ctx); err != nil {
				logging.From(c).Warn("readiness check failed", "err", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", d.Token.IssueToken)

	api := r.Group("/api")
	{
		api.GET("/products", d.Products.ListProducts)
		api.GET("/categories", d.Products.ListCategories)

		shop := api.Group("", middleware.Session(d.Sessions, d.SessionHeader))
		shop.GET("/cart", d.Cart.GetCart)
		shop.POST("/cart", d.Cart.AddToCart)
		shop.DELETE("/cart", d.Cart.EmptyCart)
		shop.PATCH("/cart/:id", d.Cart.UpdateQuantity)
		shop.DELETE("/cart/:id", d.Cart.RemoveFromCart)
		shop.POST("/checkout", d.Checkout.PrepareCheckout)
		shop.POST("/create-payment-intent", d.Checkout.CreatePaymentIntent)

		api.POST("/payments/confirm", d.Authz.Require("payments.confirm"), d.Webhook.Verify(), d.Checkout.ConfirmPayment)
	}

	return r
}
