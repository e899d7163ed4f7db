package goCatalog

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/internal/flows"
	"github.com/MrEthical07/goCatalog/internal/rate"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/permission"
)

const tokenTypeBearer = "Bearer"

// Login verifies credentials and issues an access and refresh token.
//
// Unknown users and wrong passwords both return ErrInvalidCredentials, which
// matches ErrUnauthorized. When throttling is active, repeated failures
// return ErrLoginRateLimited.
func (e *Engine) Login(ctx context.Context, usernameOrEmail, pw string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := flows.RunLogin(ctx, usernameOrEmail, pw, e.flowDeps.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		err := ErrLoginRateLimited
		if !errors.Is(res.Err, rate.ErrRateLimited) {
			err = fmt.Errorf("login throttle: %w", res.Err)
		}
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", err, identifierMeta(usernameOrEmail))
		return nil, err
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, identifierMeta(usernameOrEmail))
		return nil, ErrInvalidCredentials
	case flows.LoginFailureBackend:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("credential lookup failed", zap.Error(res.Err))
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", res.Err, identifierMeta(usernameOrEmail))
		return nil, fmt.Errorf("verify credentials: %w", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("token issuance failed", zap.Error(res.Err))
		return nil, fmt.Errorf("issue tokens: %w", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Identity.Subject, "", nil, nil)
	return &LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    tokenTypeBearer,
		Subject:      res.Identity.Subject,
		Roles:        cloneStrings(res.Identity.Roles),
	}, nil
}

// Refresh exchanges a refresh token for a new access and refresh token.
// Access tokens are not accepted. Roles are reloaded from the credential
// store.
//
// The presented refresh token is not revoked and stays valid until it
// expires.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flowDeps.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode, flows.RefreshFailureWrongKind, flows.RefreshFailureExpired,
		flows.RefreshFailureUnknownSubject:
		e.metricInc(MetricRefreshFailure)
		e.logDecodeFailure("refresh", res.Err)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Subject, "", ErrInvalidToken, nil)
		return nil, ErrInvalidToken
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		err := ErrRefreshRateLimited
		if !errors.Is(res.Err, rate.ErrRateLimited) {
			err = fmt.Errorf("refresh throttle: %w", res.Err)
		}
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.Subject, "", err, nil)
		return nil, err
	case flows.RefreshFailureBackend:
		e.metricInc(MetricRefreshFailure)
		e.logger.Error("subject lookup failed", zap.String("subject", res.Subject), zap.Error(res.Err))
		return nil, fmt.Errorf("load subject: %w", res.Err)
	default:
		e.metricInc(MetricRefreshFailure)
		e.logger.Error("token issuance failed", zap.Error(res.Err))
		return nil, fmt.Errorf("issue tokens: %w", res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Subject, "", nil, nil)
	return &LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    tokenTypeBearer,
		Subject:      res.Identity.Subject,
		Roles:        cloneStrings(res.Identity.Roles),
	}, nil
}

// Authorize verifies an access token and, when requiredRole is not empty,
// checks the token carries that role. Invalid tokens return ErrInvalidToken;
// a missing role returns ErrForbidden. Both match ErrUnauthorized.
func (e *Engine) Authorize(ctx context.Context, accessToken, requiredRole string) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := flows.RunAuthorize(accessToken, requiredRole, e.flowDeps.Authorize)
	switch res.Failure {
	case flows.AuthorizeFailureNone:
		e.metricInc(MetricAuthorizeSuccess)
		return &Identity{Subject: res.Identity.Subject, Roles: cloneStrings(res.Identity.Roles)}, nil
	case flows.AuthorizeFailureMissingRole:
		e.metricInc(MetricAuthorizeForbidden)
		e.emitAudit(ctx, auditEventAuthorizeDenied, false, res.Identity.Subject, "", ErrForbidden, func() map[string]string {
			return map[string]string{"required_role": permission.NormalizeRole(requiredRole)}
		})
		return nil, ErrForbidden
	default:
		e.metricInc(MetricAuthorizeFailure)
		e.logDecodeFailure("authorize", res.Err)
		return nil, ErrInvalidToken
	}
}

// Register creates an account. Username must be 3-50 characters, email at
// most 100 and well-formed, password within the configured byte range.
// Roles default to Account.DefaultRole; every role must be known.
func (e *Engine) Register(ctx context.Context, req SignUpRequest) (*Identity, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.Account.Enabled {
		return nil, fmt.Errorf("%w: registration disabled", ErrForbidden)
	}

	user, err := e.validateSignUp(req)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	if taken, err := e.credentials.ExistsByUsername(ctx, user.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, e.registerDuplicate(ctx, "username")
	}
	if taken, err := e.credentials.ExistsByEmail(ctx, user.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, e.registerDuplicate(ctx, "email")
	}

	user.PasswordHash, err = e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := e.credentials.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, e.registerDuplicate(ctx, "")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, id.Subject, "", nil, func() map[string]string {
		return map[string]string{"roles": strings.Join(id.Roles, ",")}
	})
	return &id, nil
}

func (e *Engine) registerDuplicate(ctx context.Context, field string) error {
	e.metricInc(MetricRegisterDuplicate)
	err := ErrDuplicateKey
	if field != "" {
		err = fmt.Errorf("%w: %s already in use", ErrDuplicateKey, field)
	}
	e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
	return err
}

func (e *Engine) validateSignUp(req SignUpRequest) (NewUser, error) {
	acct := e.config.Account

	username := strings.TrimSpace(req.Username)
	if n := len(username); n < acct.MinUsernameLength || n > acct.MaxUsernameLength {
		return NewUser{}, invalid("username", fmt.Sprintf("must be %d-%d characters", acct.MinUsernameLength, acct.MaxUsernameLength))
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || len(email) > acct.MaxEmailLength {
		return NewUser{}, invalid("email", fmt.Sprintf("must be 1-%d characters", acct.MaxEmailLength))
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return NewUser{}, invalid("email", "malformed address")
	}

	if err := e.hasher.CheckLength(req.Password); err != nil {
		reason := "length out of range"
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			reason = fmt.Sprintf("must be at least %d characters", e.config.Password.MinLength)
		case errors.Is(err, password.ErrPasswordTooLong):
			reason = fmt.Sprintf("must be at most %d characters", e.config.Password.MaxLength)
		}
		return NewUser{}, invalid("password", reason)
	}

	roles := make([]string, 0, len(req.Roles))
	for _, r := range req.Roles {
		role := permission.NormalizeRole(r)
		if role == "" {
			continue
		}
		if !e.roles.Known(role) {
			return NewUser{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = append(roles, permission.NormalizeRole(acct.DefaultRole))
	}

	return NewUser{Username: username, Email: email, Roles: roles}, nil
}

func identifierMeta(identifier string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"identifier": strings.TrimSpace(identifier)}
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
