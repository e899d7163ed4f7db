package middleware

import (
	"errors"
	"net/http"
	"strings"

	goCatalog "github.com/MrEthical07/goCatalog"
)

// ErrorHandler writes a rejection. status is 401 or 403.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err error)

// Option configures a guard.
type Option func(*guardConfig)

type guardConfig struct {
	onError ErrorHandler
}

// WithErrorHandler replaces the default plain-text rejection.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *guardConfig) {
		if h != nil {
			c.onError = h
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, status int, _ error) {
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

// Guard authorizes each request with engine. An empty requiredRole accepts
// any valid access token.
func Guard(engine *goCatalog.Engine, requiredRole string, opts ...Option) func(http.Handler) http.Handler {
	cfg := guardConfig{onError: defaultErrorHandler}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				cfg.onError(w, r, http.StatusUnauthorized, goCatalog.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				cfg.onError(w, r, http.StatusUnauthorized, goCatalog.ErrInvalidToken)
				return
			}

			id, err := engine.Authorize(r.Context(), token, requiredRole)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, goCatalog.ErrForbidden) {
					status = http.StatusForbidden
				}
				cfg.onError(w, r, status, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(goCatalog.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAuth accepts any valid access token.
func RequireAuth(engine *goCatalog.Engine, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, "", opts...)
}

// RequireRole accepts access tokens carrying role.
func RequireRole(engine *goCatalog.Engine, role string, opts ...Option) func(http.Handler) http.Handler {
	return Guard(engine, role, opts...)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
