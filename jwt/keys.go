package jwt

import (
	"crypto/ed25519"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (EdDSA).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC-SHA256 secret.
	MethodHS256 SigningMethod = "hs256"
)

const minHMACSecretBytes = 32

func (m SigningMethod) jwtMethod() jwt.SigningMethod {
	switch m {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func signKey(method SigningMethod, private []byte) (any, error) {
	switch method {
	case MethodHS256:
		if len(private) < minHMACSecretBytes {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		return private, nil
	case MethodEd25519:
		if len(private) == 0 {
			return nil, nil
		}
		return parseEdPrivateKey(private)
	default:
		return nil, errors.New("unsupported signing method")
	}
}

func verifyKey(method SigningMethod, key []byte) (any, error) {
	switch method {
	case MethodHS256:
		if len(key) < minHMACSecretBytes {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		return key, nil
	case MethodEd25519:
		return parseEdPublicKey(key)
	default:
		return nil, errors.New("unsupported signing method")
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
