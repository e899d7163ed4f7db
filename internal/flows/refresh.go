package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCatalog/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureWrongKind
	RefreshFailureExpired
	RefreshFailureRateLimited
	RefreshFailureUnknownSubject
	RefreshFailureBackend
	RefreshFailureIssue
)

// RefreshResult carries either the reissued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Subject      string
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Verify           VerifyFunc
	CheckRefreshRate func(ctx context.Context, subject string) error
	FindBySubject    func(ctx context.Context, subject string) (Identity, error)
	IssuePair        IssuePairFunc

	NotFound error
}

// RunRefresh exchanges a refresh token for a new pair.
//
// Only refresh-kind tokens are accepted. Roles are reloaded from the
// credential store so the new access token reflects current grants.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Verify(refreshToken, jwt.KindRefresh)
	if err != nil {
		failure := RefreshFailureDecode
		switch {
		case errors.Is(err, jwt.ErrWrongKind):
			failure = RefreshFailureWrongKind
		case errors.Is(err, jwt.ErrExpired):
			failure = RefreshFailureExpired
		}
		return RefreshResult{Failure: failure, Err: err}
	}

	subject := claims.Subject
	if deps.CheckRefreshRate != nil {
		if err := deps.CheckRefreshRate(ctx, subject); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, Subject: subject}
		}
	}

	id, err := deps.FindBySubject(ctx, subject)
	if err != nil {
		if deps.NotFound != nil && errors.Is(err, deps.NotFound) {
			return RefreshResult{Failure: RefreshFailureUnknownSubject, Err: err, Subject: subject}
		}
		return RefreshResult{Failure: RefreshFailureBackend, Err: err, Subject: subject}
	}
	if id.Subject != subject {
		return RefreshResult{Failure: RefreshFailureUnknownSubject, Err: deps.NotFound, Subject: subject}
	}

	access, refresh, err := deps.IssuePair(id.Subject, id.Roles)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Subject: subject}
	}

	return RefreshResult{
		Subject:      subject,
		Identity:     id,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
