package jwt

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
)

// DecodeErrorKind classifies why a token could not be decoded.
type DecodeErrorKind int

const (
	// Malformed means the token is not three base64url segments with JSON
	// object header and claims.
	Malformed DecodeErrorKind = iota + 1
	// BadSignature means the signature does not verify under any accepted key
	// or algorithm.
	BadSignature
	// ParseError means the signature verified but the claim fields are
	// missing or unreadable.
	ParseError
)

func (k DecodeErrorKind) String() string {
	switch k {
	case Malformed:
		return "MALFORMED"
	case BadSignature:
		return "BAD_SIGNATURE"
	case ParseError:
		return "PARSE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// DecodeError is returned by [Codec.Decode] for every rejected token.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "token decode: " + e.Kind.String()
	}
	return "token decode: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches another *DecodeError of the same kind, so callers can write
// errors.Is(err, &DecodeError{Kind: BadSignature}).
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the decode failure kind from err.
func KindOf(err error) (DecodeErrorKind, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

func decodeErr(kind DecodeErrorKind, err error) error {
	return &DecodeError{Kind: kind, Err: err}
}

// ErrNoSigningKey is returned by [Codec.Encode] when the codec was built with
// verification keys only.
var ErrNoSigningKey = errors.New("codec has no signing key")

// Config carries signing material and token lifetimes.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Codec signs and decodes tokens. It is immutable after construction and
// safe for concurrent use.
type Codec struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	verifyKeys map[string]any
	keyID      string
	issuer     string
	audience   string
}

// NewCodec validates the signing configuration and builds a [Codec].
func NewCodec(cfg Config) (*Codec, error) {
	c := &Codec{
		method:   cfg.SigningMethod.jwtMethod(),
		keyID:    strings.TrimSpace(cfg.KeyID),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}

	sk, err := signKey(cfg.SigningMethod, cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	c.signKey = sk

	switch cfg.SigningMethod {
	case MethodHS256:
		c.verifyKey = sk
	case MethodEd25519:
		switch {
		case len(cfg.PublicKey) > 0:
			vk, err := verifyKey(cfg.SigningMethod, cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			c.verifyKey = vk
		case sk != nil:
			c.verifyKey = sk.(ed25519.PrivateKey).Public()
		}
	}

	if len(cfg.VerifyKeys) > 0 {
		c.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			vk, err := verifyKey(cfg.SigningMethod, key)
			if err != nil {
				return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
			}
			c.verifyKeys[kid] = vk
		}
		if c.keyID != "" {
			if _, ok := c.verifyKeys[c.keyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	}

	if c.verifyKey == nil && len(c.verifyKeys) == 0 {
		return nil, errors.New("ed25519 requires public key or verify key set")
	}

	return c, nil
}

// Encode signs claims into a compact JWS string.
func (c *Codec) Encode(claims Claims) (string, error) {
	if c.signKey == nil {
		return "", ErrNoSigningKey
	}
	if claims.Subject == "" {
		return "", errors.New("claims subject is empty")
	}
	if !claims.Kind.Valid() {
		return "", fmt.Errorf("unknown token kind %q", claims.Kind)
	}

	iat := jwt.NewNumericDate(claims.IssuedAt)
	exp := jwt.NewNumericDate(claims.ExpiresAt)
	if !exp.After(iat.Time) {
		return "", errors.New("claims expiry must be after issued-at")
	}

	wc := wireClaims{
		Roles: cloneRoles(claims.Roles),
		Kind:  claims.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}
	if c.audience != "" {
		wc.Audience = jwt.ClaimStrings{c.audience}
	}

	token := jwt.NewWithClaims(c.method, wc)
	if c.keyID != "" {
		token.Header["kid"] = c.keyID
	}
	return token.SignedString(c.signKey)
}

// Decode verifies the signature of token and reconstructs its claims.
//
// Decode does not check expiry; an expired but authentic token decodes
// successfully. Every failure is a [*DecodeError].
func (c *Codec) Decode(token string) (Claims, error) {
	if err := checkStructure(token); err != nil {
		return Claims{}, decodeErr(Malformed, err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &wireClaims{}, c.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, decodeErr(BadSignature, err)
		default:
			return Claims{}, decodeErr(ParseError, err)
		}
	}

	wc, ok := parsed.Claims.(*wireClaims)
	if !ok {
		return Claims{}, decodeErr(ParseError, jwt.ErrTokenInvalidClaims)
	}
	if err := c.checkClaims(wc); err != nil {
		return Claims{}, decodeErr(ParseError, err)
	}

	return Claims{
		ID:        wc.ID,
		Subject:   wc.Subject,
		Roles:     cloneRoles(wc.Roles),
		Kind:      wc.Kind,
		IssuedAt:  wc.IssuedAt.Time,
		ExpiresAt: wc.ExpiresAt.Time,
	}, nil
}

func (c *Codec) checkClaims(wc *wireClaims) error {
	if wc.Subject == "" {
		return errors.New("missing sub claim")
	}
	if wc.IssuedAt == nil || wc.ExpiresAt == nil {
		return errors.New("missing iat or exp claim")
	}
	if !wc.ExpiresAt.After(wc.IssuedAt.Time) {
		return errors.New("exp is not after iat")
	}
	if !wc.Kind.Valid() {
		return fmt.Errorf("unknown token_use %q", wc.Kind)
	}
	if c.issuer != "" && wc.Issuer != c.issuer {
		return errors.New("issuer mismatch")
	}
	if c.audience != "" && !slices.Contains(wc.Audience, c.audience) {
		return errors.New("audience mismatch")
	}
	return nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	kid, _ := t.Header["kid"].(string)
	if len(c.verifyKeys) > 0 {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := c.verifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if c.keyID != "" && kid != c.keyID {
		return nil, errors.New("unknown kid")
	}
	return c.verifyKey, nil
}

// checkStructure rejects anything that is not header.claims.signature with
// base64url segments and JSON object header and claims.
func checkStructure(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("expected 3 segments, got %d", len(parts))
	}

	for i, seg := range parts {
		if seg == "" {
			return fmt.Errorf("segment %d is empty", i)
		}
		raw, err := base64.RawURLEncoding.DecodeString(seg)
		if err != nil {
			return fmt.Errorf("segment %d is not base64url: %w", i, err)
		}
		if i == 2 {
			break
		}

		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return fmt.Errorf("segment %d is not a JSON object", i)
		}
		if i == 0 {
			if alg, _ := obj["alg"].(string); alg == "" {
				return errors.New("header has no alg")
			}
		}
	}
	return nil
}
