package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignedProvider issues HS256 tokens so forged or expired session ids are
// replaced instead of trusted.
type SignedProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSignedProvider(secret, issuer string, ttl time.Duration) *SignedProvider {
	return &SignedProvider{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (p *SignedProvider) ResolveOrIssue(token string) (string, bool) {
	if token != "" && len(token) <= 1024 && p.valid(token) {
		return token, false
	}
	return p.issue(), true
}

func (p *SignedProvider) valid(raw string) bool {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.now),
		jwt.WithLeeway(30*time.Second),
	)
	return err == nil && tok.Valid
}

func (p *SignedProvider) issue() string {
	now := p.now()
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Issuer:   p.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if p.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(p.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		// HMAC signing only fails on a non-[]byte key
		return uuid.NewString()
	}
	return signed
}
