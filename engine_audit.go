package goCatalog

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCatalog/internal/rate"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventRefreshRateLimited = "refresh_rate_limited"
	auditEventAuthorizeDenied    = "authorize_denied"
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterFailure    = "register_failure"
	auditEventCatalogMutation    = "catalog_mutation"
	auditEventCacheInvalidated   = "cache_invalidated"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrUnknownRole        AuditErrorCode = "unknown_role"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	resource string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		Resource:  resource,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	// Specific sentinels first: the auth errors all wrap ErrUnauthorized.
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case isAnyErr(err, ErrLoginRateLimited, ErrRefreshRateLimited, rate.ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDuplicateKey):
		return auditErrDuplicate
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrUnknownRole):
		return auditErrUnknownRole
	case isAnyErr(err, ErrCacheUnavailable, rate.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
