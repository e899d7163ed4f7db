package flows

import (
	"errors"

	"github.com/MrEthical07/goCatalog/jwt"
)

// AuthorizeFailureKind classifies authorization failures.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureDecode
	AuthorizeFailureWrongKind
	AuthorizeFailureExpired
	AuthorizeFailureMissingRole
)

// AuthorizeResult carries the authenticated identity or failure metadata.
type AuthorizeResult struct {
	Failure  AuthorizeFailureKind
	Err      error
	Identity Identity
}

// AuthorizeDeps captures authorization dependencies.
type AuthorizeDeps struct {
	Verify        VerifyFunc
	NormalizeRole func(string) string
}

// RunAuthorize verifies an access token and, when requiredRole is not empty,
// checks that the token grants it.
func RunAuthorize(accessToken, requiredRole string, deps AuthorizeDeps) AuthorizeResult {
	claims, err := deps.Verify(accessToken, jwt.KindAccess)
	if err != nil {
		failure := AuthorizeFailureDecode
		switch {
		case errors.Is(err, jwt.ErrWrongKind):
			failure = AuthorizeFailureWrongKind
		case errors.Is(err, jwt.ErrExpired):
			failure = AuthorizeFailureExpired
		}
		return AuthorizeResult{Failure: failure, Err: err}
	}

	id := Identity{Subject: claims.Subject, Roles: claims.Roles}
	if requiredRole == "" {
		return AuthorizeResult{Identity: id}
	}

	normalize := deps.NormalizeRole
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	want := normalize(requiredRole)
	for _, role := range claims.Roles {
		if normalize(role) == want {
			return AuthorizeResult{Identity: id}
		}
	}
	return AuthorizeResult{Failure: AuthorizeFailureMissingRole, Identity: id}
}
