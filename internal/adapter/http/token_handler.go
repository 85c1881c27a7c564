package http

import (
	"net/http"
	"time"

	"github.com/7amooo12/SamaStylestore/configs"
	"github.com/7amooo12/SamaStylestore/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type TokenHandler struct {
	clients  security.Clients
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenHandler(cfg configs.Config, clients security.Clients) *TokenHandler {
	ttl := cfg.Security.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenHandler{
		clients:  clients,
		secret:   []byte(cfg.Security.JWTSecret),
		issuer:   cfg.Security.Issuer,
		audience: cfg.Security.Audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

type tokenReq struct {
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// POST /v1/token (form or JSON)
// Accepts: client_id, client_secret
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBind(&req); err != nil || req.ClientID == "" || req.ClientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}

	cl, ok := h.clients.Authenticate(req.ClientID, req.ClientSecret)
	if !ok || len(h.secret) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}

	now := h.now()
	claims := jwt.MapClaims{
		"iss":      h.issuer,              // issuer
		"aud":      h.audience,            // audience
		"iat":      now.Unix(),            // issued at
		"nbf":      now.Unix(),            // not before
		"exp":      now.Add(h.ttl).Unix(), // expire
		"clientID": cl.ID,
		"perms":    cl.Perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int64(h.ttl.Seconds()),
	})
}
