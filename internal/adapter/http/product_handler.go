package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/gin-gonic/gin"
)

// ProductHandler serves the storefront's read-only catalog listings.
type ProductHandler struct {
	catalog usecase.CatalogBrowser
	timeout time.Duration
}

func NewProductHandler(catalog usecase.CatalogBrowser, timeout time.Duration) *ProductHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProductHandler{catalog: catalog, timeout: timeout}
}

// GET /api/products?featured=true&category=2
func (h *ProductHandler) ListProducts(c *gin.Context) {
	featured := c.Query("featured") == "true"
	var category int64
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: category must be an integer", domain.ErrInvalidArgument))
			return
		}
		category = id
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		if featured && !p.Featured {
			continue
		}
		if category != 0 && p.CategoryID != category {
			continue
		}
		out = append(out, toProductDTO(p))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/categories
func (h *ProductHandler) ListCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryDTO{ID: cat.ID, Name: cat.Name, Description: cat.Description, Slug: cat.Slug, Image: cat.Image})
	}
	c.JSON(http.StatusOK, out)
}
