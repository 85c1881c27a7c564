package middleware

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/7amooo12/SamaStylestore/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	SignatureHeader = "X-Payment-Signature"
	maxWebhookBody  = 64 * 1024
)

type WebhookVerify struct {
	sigs security.SignatureService // nil => signatures not required
}

func NewWebhookVerify(sigs security.SignatureService) *WebhookVerify {
	return &WebhookVerify{sigs: sigs}
}

// Verify checks X-Payment-Signature: base64(RSA-SHA256(raw body)). The body is
// restored for the next handler.
func (wv *WebhookVerify) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wv.sigs == nil {
			c.Next()
			return
		}

		// --- Read raw body ---
		rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		_ = c.Request.Body.Close()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		// --- Decode signature ---
		sig, err := base64.StdEncoding.DecodeString(c.GetHeader(SignatureHeader))
		if err != nil || len(sig) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed signature"})
			return
		}

		// --- Verify RSA-SHA256 signature ---
		if err := wv.sigs.Verify(rawBody, sig); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
		c.Request.ContentLength = int64(len(rawBody))
		c.Next()
	}
}
