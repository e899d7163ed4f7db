package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	// KindAccess marks a short-lived token presented on every request.
	KindAccess TokenKind = "access"
	// KindRefresh marks a long-lived token exchanged for a new pair.
	KindRefresh TokenKind = "refresh"
)

// Valid reports whether k is one of the known token kinds.
func (k TokenKind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the decoded identity claim carried by a token.
//
// Claims are created by the [Issuer] and reconstructed by [Codec.Decode];
// they are never mutated in between.
type Claims struct {
	ID        string
	Subject   string
	Roles     []string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the claim is no longer valid at now.
// A token whose expiry equals now is already expired.
func (c Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type wireClaims struct {
	Roles []string  `json:"roles,omitempty"`
	Kind  TokenKind `json:"token_use"`
	jwt.RegisteredClaims
}

func cloneRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
