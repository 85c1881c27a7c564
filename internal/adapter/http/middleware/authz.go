package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/7amooo12/SamaStylestore/configs"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxClientID = "client_id"

// clockSkew tolerated on exp/nbf/iat.
const clockSkew = 30 * time.Second

var errNoBearer = errors.New("missing bearer token")

// Authz guards service-to-service routes with the HS256 tokens minted by
// /v1/token.
type Authz struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthz(cfg configs.Config) *Authz {
	return &Authz{
		secret: []byte(cfg.Security.JWTSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Security.Issuer),
			jwt.WithAudience(cfg.Security.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Require rejects the request unless it carries a valid token holding every
// one of perms.
func (a *Authz) Require(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.secret) == 0 {
			deny(c, http.StatusUnauthorized, "invalid_token", "token auth not configured")
			return
		}
		claims, err := a.claims(c.GetHeader("Authorization"))
		if errors.Is(err, errNoBearer) {
			deny(c, http.StatusUnauthorized, "invalid_request", err.Error())
			return
		}
		if err != nil {
			deny(c, http.StatusUnauthorized, "invalid_token", "invalid jwt")
			return
		}
		if missing := missingPerm(claims, perms); missing != "" {
			deny(c, http.StatusForbidden, "insufficient_scope", "missing permission "+missing)
			return
		}
		if id, ok := claims["clientID"].(string); ok {
			c.Set(ctxClientID, id)
		}
		c.Next()
	}
}

func (a *Authz) claims(header string) (jwt.MapClaims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errNoBearer
	}
	claims := jwt.MapClaims{}
	if _, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// missingPerm returns the first of want not granted by the perms claim.
func missingPerm(claims jwt.MapClaims, want []string) string {
	granted := map[string]bool{}
	if list, ok := claims["perms"].([]any); ok {
		for _, p := range list {
			if s, ok := p.(string); ok {
				granted[s] = true
			}
		}
	}
	for _, w := range want {
		if !granted[w] {
			return w
		}
	}
	return ""
}

func deny(c *gin.Context, status int, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(status, gin.H{"error": code, "error_description": desc})
}

// ClientID returns the authenticated caller set by Require.
func ClientID(c *gin.Context) string { return c.GetString(ctxClientID) }
