package goCatalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/cache"
	internalaudit "github.com/MrEthical07/goCatalog/internal/audit"
	"github.com/MrEthical07/goCatalog/internal/flows"
	"github.com/MrEthical07/goCatalog/internal/rate"
	"github.com/MrEthical07/goCatalog/jwt"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/permission"
)

// Engine is the catalog API core: token lifecycle plus cached catalog
// access. Build one with [New]; all methods are safe for concurrent use.
type Engine struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	issuer   *jwt.Issuer
	verifier *jwt.Verifier
	cache    *cache.Layer

	credentials CredentialStore
	catalog     CatalogStore
	hasher      *password.Argon2
	roles       *permission.RoleManager
	limiter     *rate.Limiter

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	flowDeps flows.Deps
	closed   atomic.Bool
}

// Fallback computes a query result on a cache miss.
type Fallback = cache.Fallback

func (e *Engine) initFlowDeps() {
	verify := e.verifier.Verify
	e.flowDeps = flows.Deps{
		Login: flows.LoginDeps{
			ClientIPFromContext: clientIPFromContext,
			VerifyCredentials: func(ctx context.Context, identifier, pw string) (flows.Identity, error) {
				id, err := e.credentials.VerifyCredentials(ctx, identifier, pw)
				return flows.Identity{Subject: id.Subject, Roles: id.Roles}, err
			},
			IssuePair:          e.issuer.IssuePair,
			Warn:               e.logger.Sugar().Warnw,
			InvalidCredentials: ErrInvalidCredentials,
			NotFound:           ErrNotFound,
		},
		Refresh: flows.RefreshDeps{
			Verify: verify,
			FindBySubject: func(ctx context.Context, subject string) (flows.Identity, error) {
				id, err := e.credentials.FindBySubject(ctx, subject)
				return flows.Identity{Subject: id.Subject, Roles: id.Roles}, err
			},
			IssuePair: e.issuer.IssuePair,
			NotFound:  ErrNotFound,
		},
		Authorize: flows.AuthorizeDeps{
			Verify:        verify,
			NormalizeRole: permission.NormalizeRole,
		},
		Query: flows.QueryDeps{
			Query: e.cache.Query,
		},
		Mutation: flows.MutationDeps{
			Invalidate: e.invalidateCache,
		},
	}

	if e.limiter != nil {
		if e.config.Security.EnableLoginThrottle {
			e.flowDeps.Login.CheckLoginRate = e.limiter.CheckLogin
			e.flowDeps.Login.IncrementLoginRate = e.limiter.IncrementLogin
			e.flowDeps.Login.ResetLoginRate = e.limiter.ResetLogin
		}
		if e.config.Security.EnableRefreshThrottle {
			e.flowDeps.Refresh.CheckRefreshRate = e.limiter.CheckRefresh
		}
	}
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// Close flushes pending audit events. Later calls return ErrEngineNotReady.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

// ValidateToken reports whether token is a correctly signed, unexpired token
// for expectedSubject. It never returns an error.
func (e *Engine) ValidateToken(token, expectedSubject string) bool {
	if e.ready() != nil {
		return false
	}
	return e.verifier.Validate(token, expectedSubject)
}

// ExtractSubject returns the subject of a correctly signed token, expired or
// not. Corrupt tokens yield a *jwt.DecodeError.
func (e *Engine) ExtractSubject(token string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.verifier.ExtractSubject(token)
}

// Permissions lists the permission names granted by id's roles.
func (e *Engine) Permissions(id *Identity) []string {
	if e == nil || id == nil {
		return nil
	}
	return e.roles.Permissions(id.Roles)
}

// Can reports whether id's roles grant permission.
func (e *Engine) Can(id *Identity, perm string) bool {
	if e == nil || id == nil {
		return false
	}
	return e.roles.Allows(id.Roles, perm)
}

// AccessTTL returns the configured access token window.
func (e *Engine) AccessTTL() time.Duration {
	return e.issuer.AccessTTL()
}

// RefreshTTL returns the configured refresh token window.
func (e *Engine) RefreshTTL() time.Duration {
	return e.issuer.RefreshTTL()
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// MetricsSnapshot satisfies the exporter source interface.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.Metrics()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) logDecodeFailure(op string, err error) {
	if kind, ok := jwt.KindOf(err); ok {
		e.metricInc(MetricTokenDecodeFailure)
		e.logger.Debug("token rejected",
			zap.String("op", op),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("token rejected", zap.String("op", op), zap.Error(err))
}

func (e *Engine) invalidateCache(ctx context.Context) (uint64, error) {
	gen, err := e.cache.InvalidateAll(ctx)
	if err != nil {
		e.logger.Error("cache invalidation failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	e.metricInc(MetricCacheInvalidation)
	e.logger.Debug("cache invalidated", zap.Uint64("generation", gen))
	e.emitAudit(ctx, auditEventCacheInvalidated, true, subjectFromContext(ctx), "", nil, func() map[string]string {
		return map[string]string{"generation": fmt.Sprint(gen)}
	})
	return gen, nil
}

func isAnyErr(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
