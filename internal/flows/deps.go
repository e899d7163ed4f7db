package flows

import "github.com/MrEthical07/goCatalog/jwt"

// Identity is the flow-local view of an authenticated principal.
type Identity struct {
	Subject string
	Roles   []string
}

// VerifyFunc decodes a token and checks its kind and expiry.
type VerifyFunc func(token string, kind jwt.TokenKind) (jwt.Claims, error)

// IssuePairFunc mints an access and refresh token for subject.
type IssuePairFunc func(subject string, roles []string) (access, refresh string, err error)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login     LoginDeps
	Refresh   RefreshDeps
	Authorize AuthorizeDeps
	Query     QueryDeps
	Mutation  MutationDeps
}

func warn(fn func(string, ...any), msg string, args ...any) {
	if fn != nil {
		fn(msg, args...)
	}
}
