package goCatalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goCatalog/jwt"
)

func TestLoginAuthorizeRefreshLifecycle(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	res, err := kit.engine.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.TokenType != "Bearer" || res.Subject != "alice" {
		t.Fatalf("unexpected login result %+v", res)
	}

	id, err := kit.engine.Authorize(ctx, res.AccessToken, "ADMIN")
	if err != nil {
		t.Fatalf("authorize ADMIN: %v", err)
	}
	if id.Subject != "alice" || !id.HasRole("role_admin") {
		t.Fatalf("unexpected identity %+v", id)
	}

	_, err = kit.engine.Authorize(ctx, res.AccessToken, "SUPERADMIN")
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden/unauthorized, got %v", err)
	}

	kit.clock.Advance(kit.engine.AccessTTL() + time.Second)

	if _, err := kit.engine.Authorize(ctx, res.AccessToken, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
	if kit.engine.ValidateToken(res.AccessToken, "alice") {
		t.Fatal("expired access token must not validate")
	}
	if sub, err := kit.engine.ExtractSubject(res.AccessToken); err != nil || sub != "alice" {
		t.Fatalf("extract subject of expired token: %q %v", sub, err)
	}

	refreshed, err := kit.engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Subject != "alice" {
		t.Fatalf("refresh subject = %q, want alice", refreshed.Subject)
	}
	if _, err := kit.engine.Authorize(ctx, refreshed.AccessToken, "ADMIN"); err != nil {
		t.Fatalf("authorize refreshed token: %v", err)
	}

	snap := kit.engine.Metrics()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricRefreshSuccess] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
	if snap.Counters[MetricAuthorizeForbidden] != 1 {
		t.Fatalf("forbidden count = %d", snap.Counters[MetricAuthorizeForbidden])
	}
}

func TestRefreshWindowExceedsAccessWindow(t *testing.T) {
	kit := newTestKit(t, nil)
	if kit.engine.RefreshTTL() <= kit.engine.AccessTTL() {
		t.Fatalf("refresh %v must exceed access %v", kit.engine.RefreshTTL(), kit.engine.AccessTTL())
	}

	cfg := testConfig()
	cfg.JWT.RefreshTTL = cfg.JWT.AccessTTL
	_, err := New().
		WithConfig(cfg).
		WithCredentialStore(kit.users).
		WithCatalogStore(kit.catalog).
		Build()
	if err == nil {
		t.Fatal("expected equal windows to be rejected")
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	for _, tc := range []struct{ name, id, pw string }{
		{"wrong password", "alice", "nope123"},
		{"unknown user", "mallory", "secret1"},
		{"empty password", "alice", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kit.engine.Login(ctx, tc.id, tc.pw)
			if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected invalid credentials, got %v", err)
			}
		})
	}
}

func TestLoginByEmail(t *testing.T) {
	kit := newTestKit(t, nil)
	res, err := kit.engine.Login(context.Background(), "bob@example.com", "secret2")
	if err != nil {
		t.Fatalf("login by email: %v", err)
	}
	if res.Subject != "bob" {
		t.Fatalf("subject = %q", res.Subject)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	res, err := kit.engine.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := kit.engine.Refresh(ctx, res.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := kit.engine.Authorize(ctx, res.RefreshToken, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not authorize, got %v", err)
	}
}

func TestRefreshAfterRefreshWindowFails(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	res, err := kit.engine.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	kit.clock.Advance(kit.engine.RefreshTTL() + time.Second)
	if _, err := kit.engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRefreshReloadsRoles(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	res, err := kit.engine.Login(ctx, "bob", "secret2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := kit.engine.Authorize(ctx, res.AccessToken, "ADMIN"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("bob must not be admin yet: %v", err)
	}

	kit.users.setRoles("bob", "USER", "ADMIN")
	refreshed, err := kit.engine.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := kit.engine.Authorize(ctx, refreshed.AccessToken, "ADMIN"); err != nil {
		t.Fatalf("refreshed token should carry ADMIN: %v", err)
	}
}

func TestAuthorizeRejectsTamperedToken(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	res, err := kit.engine.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	raw := []byte(res.AccessToken)
	last := len(raw) - 2
	if raw[last] == 'A' {
		raw[last] = 'B'
	} else {
		raw[last] = 'A'
	}

	if _, err := kit.engine.Authorize(ctx, string(raw), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	_, err = kit.engine.ExtractSubject(string(raw))
	if kind, ok := jwt.KindOf(err); !ok || kind != jwt.BadSignature {
		t.Fatalf("expected BAD_SIGNATURE, got %v", err)
	}
	if got := kit.engine.Metrics().Counters[MetricTokenDecodeFailure]; got != 1 {
		t.Fatalf("decode failures = %d", got)
	}
}

func TestRegister(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	id, err := kit.engine.Register(ctx, SignUpRequest{
		Username: "carol",
		Email:    "carol@example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id.Subject != "carol" || len(id.Roles) != 1 || id.Roles[0] != "USER" {
		t.Fatalf("unexpected identity %+v", id)
	}

	res, err := kit.engine.Login(ctx, "carol", "hunter22")
	if err != nil {
		t.Fatalf("login after register: %v", err)
	}
	if _, err := kit.engine.Authorize(ctx, res.AccessToken, "USER"); err != nil {
		t.Fatalf("authorize: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	kit := newTestKit(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		req  SignUpRequest
		want error
	}{
		{"short username", SignUpRequest{Username: "ab", Email: "ab@example.com", Password: "hunter22"}, ErrInvalidInput},
		{"bad email", SignUpRequest{Username: "dave", Email: "not-an-email", Password: "hunter22"}, ErrInvalidInput},
		{"short password", SignUpRequest{Username: "dave", Email: "dave@example.com", Password: "abc"}, ErrInvalidInput},
		{"unknown role", SignUpRequest{Username: "dave", Email: "dave@example.com", Password: "hunter22", Roles: []string{"SUPERADMIN"}}, ErrUnknownRole},
		{"taken username", SignUpRequest{Username: "alice", Email: "other@example.com", Password: "hunter22"}, ErrDuplicateKey},
		{"taken email", SignUpRequest{Username: "alice2", Email: "alice@example.com", Password: "hunter22"}, ErrDuplicateKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := kit.engine.Register(ctx, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	var verr *ValidationError
	_, err := kit.engine.Register(ctx, SignUpRequest{Username: "dave", Email: "bad", Password: "hunter22"})
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if got := kit.engine.Metrics().Counters[MetricRegisterDuplicate]; got != 2 {
		t.Fatalf("duplicate count = %d", got)
	}
}

func TestRegisterAcceptsPrefixedRole(t *testing.T) {
	kit := newTestKit(t, nil)
	id, err := kit.engine.Register(context.Background(), SignUpRequest{
		Username: "erin",
		Email:    "erin@example.com",
		Password: "hunter22",
		Roles:    []string{"role_admin"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(id.Roles) != 1 || id.Roles[0] != "ADMIN" {
		t.Fatalf("roles = %v", id.Roles)
	}
}

func TestLoginThrottle(t *testing.T) {
	_, rdb := newTestRedis(t)
	kit := newTestKit(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 2
		b.WithConfig(cfg).WithRedis(rdb)
	})
	ctx := WithClientIP(context.Background(), "10.0.0.1")

	for i := 0; i < 2; i++ {
		if _, err := kit.engine.Login(ctx, "alice", "wrong12"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if _, err := kit.engine.Login(ctx, "alice", "secret1"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if _, err := kit.engine.Login(ctx, "bob", "secret2"); err != nil {
		t.Fatalf("other users are not throttled: %v", err)
	}
	if got := kit.engine.Metrics().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("rate limited count = %d", got)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	_, rdb := newTestRedis(t)
	kit := newTestKit(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Security.MaxLoginAttempts = 2
		b.WithConfig(cfg).WithRedis(rdb)
	})
	ctx := context.Background()

	if _, err := kit.engine.Login(ctx, "alice", "wrong12"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := kit.engine.Login(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := kit.engine.Login(ctx, "alice", "wrong12"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: %v", i, err)
		}
	}
}

func TestClosedEngineNotReady(t *testing.T) {
	kit := newTestKit(t, nil)
	kit.engine.Close()
	if _, err := kit.engine.Login(context.Background(), "alice", "secret1"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if kit.engine.ValidateToken("x", "alice") {
		t.Fatal("closed engine must not validate tokens")
	}
}
