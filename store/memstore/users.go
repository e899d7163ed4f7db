package memstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/password"
)

type user struct {
	username string
	email    string
	hash     string
	roles    []string
}

// Users is an in-memory account table. Passwords are stored as hashes
// produced by the configured hasher.
type Users struct {
	hasher password.Hasher

	mu         sync.RWMutex
	byUsername map[string]*user
	byEmail    map[string]*user
}

// NewUsers returns an empty account table verifying passwords with hasher.
func NewUsers(hasher password.Hasher) *Users {
	return &Users{
		hasher:     hasher,
		byUsername: make(map[string]*user),
		byEmail:    make(map[string]*user),
	}
}

// Seed hashes pw and stores the account. It is meant for bootstrap data.
func (s *Users) Seed(ctx context.Context, username, email, pw string, roles ...string) error {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return err
	}
	_, err = s.CreateUser(ctx, goCatalog.NewUser{Username: username, Email: email, PasswordHash: hash, Roles: roles})
	return err
}

func (s *Users) VerifyCredentials(_ context.Context, usernameOrEmail, pw string) (goCatalog.Identity, error) {
	s.mu.RLock()
	u, ok := s.byUsername[usernameOrEmail]
	if !ok {
		u, ok = s.byEmail[strings.ToLower(usernameOrEmail)]
	}
	s.mu.RUnlock()
	if !ok {
		return goCatalog.Identity{}, goCatalog.ErrNotFound
	}

	match, err := s.hasher.Verify(pw, u.hash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return goCatalog.Identity{}, goCatalog.ErrInvalidCredentials
	}
	if err != nil {
		return goCatalog.Identity{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return goCatalog.Identity{}, goCatalog.ErrInvalidCredentials
	}
	return identity(u), nil
}

func (s *Users) FindBySubject(_ context.Context, subject string) (goCatalog.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byUsername[subject]
	if !ok {
		return goCatalog.Identity{}, goCatalog.ErrNotFound
	}
	return identity(u), nil
}

func (s *Users) CreateUser(_ context.Context, nu goCatalog.NewUser) (goCatalog.Identity, error) {
	email := strings.ToLower(nu.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[nu.Username]; taken {
		return goCatalog.Identity{}, fmt.Errorf("%w: username", goCatalog.ErrDuplicateKey)
	}
	if _, taken := s.byEmail[email]; taken {
		return goCatalog.Identity{}, fmt.Errorf("%w: email", goCatalog.ErrDuplicateKey)
	}

	u := &user{
		username: nu.Username,
		email:    email,
		hash:     nu.PasswordHash,
		roles:    append([]string(nil), nu.Roles...),
	}
	s.byUsername[u.username] = u
	s.byEmail[u.email] = u
	return identity(u), nil
}

func (s *Users) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[username]
	return ok, nil
}

func (s *Users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[strings.ToLower(email)]
	return ok, nil
}

func identity(u *user) goCatalog.Identity {
	return goCatalog.Identity{Subject: u.username, Roles: append([]string(nil), u.roles...)}
}
