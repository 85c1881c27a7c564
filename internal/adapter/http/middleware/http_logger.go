package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	bodyLogLimit    = 8 * 1024
	redacted        = "***redacted***"
)

// Keys whose values never reach the log, compared case-insensitively.
// clientSecret authorizes a card payment in the browser.
var redactedKeys = map[string]struct{}{
	"password":      {},
	"authorization": {},
	"token":         {},
	"secret":        {},
	"clientsecret":  {},
	"client_secret": {},
	"access_token":  {},
}

// cappedWriter tees up to bodyLogLimit bytes of the response for the log.
type cappedWriter struct {
	gin.ResponseWriter
	head bytes.Buffer
}

func (w *cappedWriter) Write(b []byte) (int, error) {
	if room := bodyLogLimit - w.head.Len(); room > 0 {
		w.head.Write(b[:min(len(b), room)])
	}
	return w.ResponseWriter.Write(b)
}

func (w *cappedWriter) logged() string {
	if !isJSON(w.Header().Get("Content-Type")) {
		return ""
	}
	return clip(redactJSON(w.head.Bytes()), w.head.Len() >= bodyLogLimit)
}

func isJSON(contentType string) bool { return strings.Contains(contentType, "application/json") }

func clip(b []byte, truncated bool) string {
	if truncated {
		return string(b) + "...truncated..."
	}
	return string(b)
}

func redactJSON(raw []byte) []byte {
	var doc any
	if len(raw) == 0 || json.Unmarshal(raw, &doc) != nil {
		return raw
	}
	out, err := json.Marshal(scrub(doc))
	if err != nil {
		return raw
	}
	return out
}

func scrub(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if _, hide := redactedKeys[strings.ToLower(k)]; hide {
				t[k] = redacted
			} else {
				t[k] = scrub(val)
			}
		}
	case []any:
		for i := range t {
			t[i] = scrub(t[i])
		}
	}
	return v
}

// peekBody reads up to n bytes for logging and puts them back in front of the
// unread remainder, so handlers and signature checks see the original body.
func peekBody(c *gin.Context, n int) (head []byte, truncated bool) {
	var buf bytes.Buffer
	_, _ = io.CopyN(&buf, c.Request.Body, int64(n+1))
	head = buf.Bytes()
	c.Request.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), c.Request.Body), c.Request.Body}
	if len(head) > n {
		return head[:n], true
	}
	return head, false
}

// Logging writes one line per request and puts a request-scoped logger (with
// req_id) into both the gin and the request context.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set(RequestIDHeader, reqID)
		}
		c.Header(RequestIDHeader, reqID)

		l := base.With("req_id", reqID, "method", c.Request.Method, "route", c.FullPath(), "remote", c.ClientIP())
		logging.With(c, l)

		var reqBody string
		if c.Request.Body != nil && isJSON(c.GetHeader("Content-Type")) {
			head, truncated := peekBody(c, bodyLogLimit)
			reqBody = clip(redactJSON(head), truncated)
		}

		w := &cappedWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
		}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if body := w.logged(); body != "" {
			attrs = append(attrs, "resp_body", body)
		}
		if len(c.Params) > 0 {
			attrs = append(attrs, "params", c.Params)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		// session_id is attached by the session middleware further down
		l = logging.From(c)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Info("http_request", attrs...)
		}
	}
}
