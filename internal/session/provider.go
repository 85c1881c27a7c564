// Package session issues and recognizes the anonymous tokens that tie a
// client to its cart. The server keeps no session table; the token is the key.
package session

import (
	"strings"

	"github.com/google/uuid"
)

// Provider resolves the caller's session. It never fails: an absent or
// unrecognized token yields a fresh one with issued=true, and the transport
// must hand it back to the client.
type Provider interface {
	ResolveOrIssue(token string) (sessionID string, issued bool)
}

const maxTokenLen = 128

// OpaqueProvider accepts any well-formed client token and mints UUIDv4 tokens.
type OpaqueProvider struct{}

func NewOpaqueProvider() OpaqueProvider { return OpaqueProvider{} }

func (OpaqueProvider) ResolveOrIssue(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if wellFormed(token) {
		return token, false
	}
	return uuid.NewString(), true
}

// wellFormed rejects empty, oversized or non-printable tokens. Legacy storefront
// clients send short base36 ids, so no particular format is required.
func wellFormed(token string) bool {
	if token == "" || len(token) > maxTokenLen {
		return false
	}
	for _, r := range token {
		if r <= 0x20 || r >= 0x7f {
			return false
		}
	}
	return true
}
