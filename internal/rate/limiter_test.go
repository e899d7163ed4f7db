package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func testConfig() Config {
	return Config{
		KeyPrefix:               "test",
		EnableIPThrottle:        true,
		EnableRefreshThrottle:   true,
		MaxLoginAttempts:        3,
		LoginCooldownDuration:   time.Minute,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
	}
}

func TestLoginBudgetAndReset(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := New(rdb, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "Alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected check error %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "Alice", "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected increment error %v", i, err)
		}
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.2"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected username budget exhausted, got %v", err)
	}

	n, err := l.LoginAttempts(ctx, "alice")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d %v", n, err)
	}

	if err := l.ResetLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("expected budget restored, got %v", err)
	}
}

func TestLoginIPThrottleSpansUsers(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := New(rdb, testConfig())
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		if err := l.IncrementLogin(ctx, user, "10.0.0.9"); err != nil {
			t.Fatalf("increment %s: %v", user, err)
		}
	}
	if err := l.CheckLogin(ctx, "d", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget exhausted, got %v", err)
	}
	if err := l.CheckLogin(ctx, "d", "10.0.0.10"); err != nil {
		t.Fatalf("other IP should pass, got %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := New(rdb, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = l.IncrementLogin(ctx, "alice", "")
	}
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestRefreshBudget(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := New(rdb, testConfig())
	ctx := context.Background()

	if err := l.CheckRefresh(ctx, "alice"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "alice"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third refresh should be limited, got %v", err)
	}
	if err := l.CheckRefresh(ctx, "bob"); err != nil {
		t.Fatalf("other subject should pass, got %v", err)
	}
}

func TestRefreshThrottleDisabled(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.EnableRefreshThrottle = false
	l := New(rdb, cfg)

	for i := 0; i < 10; i++ {
		if err := l.CheckRefresh(context.Background(), "alice"); err != nil {
			t.Fatalf("disabled throttle returned %v", err)
		}
	}
}

func TestRedisDownIsClassified(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := New(rdb, testConfig())
	mr.Close()

	err := l.CheckLogin(context.Background(), "alice", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
