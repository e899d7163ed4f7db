package goCatalog

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goCatalog/password"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = append([]byte(nil), testSecret...)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func testHasher(t testing.TB) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(testConfig().Password.argon2Config())
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	return h
}

type fakeUser struct {
	username string
	email    string
	hash     string
	roles    []string
}

type fakeCredentials struct {
	hasher *password.Argon2

	mu    sync.Mutex
	users map[string]*fakeUser
}

func newFakeCredentials(t testing.TB) *fakeCredentials {
	return &fakeCredentials{hasher: testHasher(t), users: map[string]*fakeUser{}}
}

func (s *fakeCredentials) add(t testing.TB, username, pw string, roles ...string) {
	t.Helper()
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &fakeUser{username: username, email: username + "@example.com", hash: hash, roles: roles}
}

func (s *fakeCredentials) setRoles(username string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username].roles = roles
}

func (s *fakeCredentials) lookup(identifier string) *fakeUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.username == identifier || strings.EqualFold(u.email, identifier) {
			return u
		}
	}
	return nil
}

func (s *fakeCredentials) VerifyCredentials(_ context.Context, identifier, pw string) (Identity, error) {
	u := s.lookup(identifier)
	if u == nil {
		return Identity{}, ErrNotFound
	}
	ok, err := s.hasher.Verify(pw, u.hash)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Subject: u.username, Roles: slices.Clone(u.roles)}, nil
}

func (s *fakeCredentials) FindBySubject(_ context.Context, subject string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[subject]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return Identity{Subject: u.username, Roles: slices.Clone(u.roles)}, nil
}

func (s *fakeCredentials) CreateUser(_ context.Context, nu NewUser) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[nu.Username]; ok {
		return Identity{}, ErrDuplicateKey
	}
	s.users[nu.Username] = &fakeUser{username: nu.Username, email: nu.Email, hash: nu.PasswordHash, roles: nu.Roles}
	return Identity{Subject: nu.Username, Roles: slices.Clone(nu.Roles)}, nil
}

func (s *fakeCredentials) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok, nil
}

func (s *fakeCredentials) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.email, email) {
			return true, nil
		}
	}
	return false, nil
}

type fakeCatalog struct {
	now func() time.Time

	mu       sync.Mutex
	products map[int64]Product
	nextID   int64

	calls atomic.Int64
}

func newFakeCatalog(now func() time.Time) *fakeCatalog {
	return &fakeCatalog{now: now, products: map[int64]Product{}}
}

func (s *fakeCatalog) filter(keep func(Product) bool) []Product {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Product{}
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *fakeCatalog) Get(_ context.Context, id int64) (*Product, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *fakeCatalog) GetBySku(_ context.Context, sku string) (*Product, error) {
	items := s.filter(func(p Product) bool { return p.SKU == sku })
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (s *fakeCatalog) ListAll(context.Context) ([]Product, error) {
	return s.filter(func(Product) bool { return true }), nil
}

func (s *fakeCatalog) ListActive(context.Context) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.Active }), nil
}

func (s *fakeCatalog) ListActivePage(_ context.Context, req PageRequest) (ProductPage, error) {
	all := s.filter(func(p Product) bool { return p.Active })
	if req.SortDir == SortDesc {
		slices.Reverse(all)
	}
	start := min(req.Offset(), len(all))
	end := min(start+req.Size, len(all))
	return NewProductPage(all[start:end], len(all), req), nil
}

func (s *fakeCatalog) ListByCategory(_ context.Context, category string) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.Category == category }), nil
}

func (s *fakeCatalog) ListByBrand(_ context.Context, brand string) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.Brand == brand }), nil
}

func (s *fakeCatalog) Search(_ context.Context, keyword string) ([]Product, error) {
	return s.filter(func(p Product) bool {
		return p.Active && (strings.Contains(strings.ToLower(p.Name), keyword) ||
			strings.Contains(strings.ToLower(p.Description), keyword))
	}), nil
}

func (s *fakeCatalog) ListByPriceRange(_ context.Context, minCents, maxCents int64) ([]Product, error) {
	return s.filter(func(p Product) bool {
		return p.Active && p.PriceCents >= minCents && p.PriceCents <= maxCents
	}), nil
}

func (s *fakeCatalog) ListLowStock(_ context.Context, threshold int) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.Active && p.Quantity <= threshold }), nil
}

func (s *fakeCatalog) ListLatest(context.Context) ([]Product, error) {
	out := s.filter(func(p Product) bool { return p.Active })
	slices.Reverse(out)
	return out, nil
}

func (s *fakeCatalog) Create(_ context.Context, p *Product) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.products[p.ID] = *p
	return nil
}

func (s *fakeCatalog) Update(_ context.Context, p *Product) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = s.now()
	s.products[p.ID] = *p
	return nil
}

func (s *fakeCatalog) SoftDelete(_ context.Context, id int64) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	s.products[id] = p
	return nil
}

func (s *fakeCatalog) HardDelete(_ context.Context, id int64) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *fakeCatalog) ExistsBySku(_ context.Context, sku string) (bool, error) {
	return len(s.filter(func(p Product) bool { return p.SKU == sku })) > 0, nil
}

type testKit struct {
	engine  *Engine
	clock   *testClock
	users   *fakeCredentials
	catalog *fakeCatalog
}

func newTestKit(t testing.TB, configure func(*Builder)) *testKit {
	t.Helper()
	clock := newTestClock()
	users := newFakeCredentials(t)
	users.add(t, "alice", "secret1", "ADMIN")
	users.add(t, "bob", "secret2", "USER")
	catalog := newFakeCatalog(clock.Now)

	b := New().
		WithConfig(testConfig()).
		WithCredentialStore(users).
		WithCatalogStore(catalog).
		WithClock(clock.Now)
	if configure != nil {
		configure(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testKit{engine: engine, clock: clock, users: users, catalog: catalog}
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
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

func sampleProduct(sku string) Product {
	return Product{
		Name:       "Phone " + sku,
		PriceCents: 19999,
		Quantity:   5,
		SKU:        sku,
		Category:   "Electronics",
		Brand:      "Acme",
		Active:     true,
	}
}
