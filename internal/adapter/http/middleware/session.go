package middleware

import (
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	ctxSessionID        = "session_id"
	SessionIssuedHeader = "X-Session-Issued"
)

// Session resolves the caller's cart session from header and echoes it back
// on every response so clients can persist a freshly issued one.
func Session(p session.Provider, header string) gin.HandlerFunc {
	if header == "" {
		header = "sessionid"
	}
	return func(c *gin.Context) {
		sid, issued := p.ResolveOrIssue(c.GetHeader(header))
		c.Set(ctxSessionID, sid)
		c.Header(header, sid)
		c.Header("Access-Control-Expose-Headers", header+", "+SessionIssuedHeader)
		if issued {
			c.Header(SessionIssuedHeader, "true")
		}
		logging.With(c, logging.From(c).With("session_id", sid))
		c.Next()
	}
}

// SessionID returns the session resolved by Session, or "" outside it.
func SessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
