package flows

import (
	"context"
	"errors"
	"strings"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureBackend
	LoginFailureIssue
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// LoginDeps captures login dependencies. Rate functions may be nil when
// throttling is disabled.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string

	CheckLoginRate     func(ctx context.Context, identifier, ip string) error
	IncrementLoginRate func(ctx context.Context, identifier, ip string) error
	ResetLoginRate     func(ctx context.Context, identifier, ip string) error

	VerifyCredentials func(ctx context.Context, identifier, password string) (Identity, error)
	IssuePair         IssuePairFunc
	Warn              func(string, ...any)

	InvalidCredentials error
	NotFound           error
}

// RunLogin verifies credentials and issues a token pair.
//
// Unknown identifiers and wrong passwords are indistinguishable in the
// result: both are LoginFailureInvalidCredentials.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	identifier = strings.TrimSpace(identifier)
	ip := ""
	if deps.ClientIPFromContext != nil {
		ip = deps.ClientIPFromContext(ctx)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, identifier, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	rejected := func(err error) LoginResult {
		if deps.IncrementLoginRate != nil {
			if rateErr := deps.IncrementLoginRate(ctx, identifier, ip); rateErr != nil {
				return LoginResult{Failure: LoginFailureRateLimited, Err: rateErr}
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err}
	}

	if identifier == "" || password == "" {
		return rejected(deps.InvalidCredentials)
	}

	id, err := deps.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		if isAny(err, deps.InvalidCredentials, deps.NotFound) {
			return rejected(err)
		}
		return LoginResult{Failure: LoginFailureBackend, Err: err}
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, identifier, ip); err != nil {
			warn(deps.Warn, "login rate reset failed", "error", err)
		}
	}

	access, refresh, err := deps.IssuePair(id.Subject, id.Roles)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Identity: id}
	}

	return LoginResult{
		Identity:     id,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if target != nil && errors.Is(err, target) {
			return true
		}
	}
	return false
}
