package jwt

import (
	"errors"
	"time"
)

var (
	// ErrExpired reports an authentic token whose expiry is not after now.
	ErrExpired = errors.New("token expired")
	// ErrWrongKind reports an access token used as refresh, or the reverse.
	ErrWrongKind = errors.New("unexpected token kind")
)

// Verifier checks decoded tokens against an injected clock.
type Verifier struct {
	codec *Codec
	now   func() time.Time
}

// NewVerifier binds codec to a clock. A nil now falls back to time.Now.
func NewVerifier(codec *Codec, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{codec: codec, now: now}
}

// Validate reports whether token decodes, has not expired, and names
// expectedSubject. It never returns an error; every failure is false.
func (v *Verifier) Validate(token, expectedSubject string) bool {
	if v == nil || v.codec == nil {
		return false
	}
	claims, err := v.codec.Decode(token)
	if err != nil {
		return false
	}
	if claims.ExpiredAt(v.now()) {
		return false
	}
	return claims.Subject == expectedSubject
}

// ExtractSubject returns the subject of an authentic token, expired or not.
// Corrupted tokens return a [*DecodeError].
func (v *Verifier) ExtractSubject(token string) (string, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Verify decodes token and checks that it is of the wanted kind and still
// inside its window. Failures are a [*DecodeError], [ErrWrongKind], or
// [ErrExpired], in that order of precedence.
func (v *Verifier) Verify(token string, kind TokenKind) (Claims, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != kind {
		return Claims{}, ErrWrongKind
	}
	if claims.ExpiredAt(v.now()) {
		return Claims{}, ErrExpired
	}
	return claims, nil
}
