package bunstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/password"
)

// Users implements goCatalog.CredentialStore on the users and user_roles
// tables.
type Users struct {
	db     *bun.DB
	hasher password.Hasher
	now    func() time.Time
}

// NewUsers wraps db, verifying passwords with hasher.
func NewUsers(db *bun.DB, hasher password.Hasher, now func() time.Time) *Users {
	if now == nil {
		now = time.Now
	}
	return &Users{db: db, hasher: hasher, now: now}
}

func (s *Users) VerifyCredentials(ctx context.Context, usernameOrEmail, pw string) (goCatalog.Identity, error) {
	u := new(userModel)
	err := s.db.NewSelect().
		Model(u).
		Where("username = ?", usernameOrEmail).
		WhereOr("email = ?", strings.ToLower(usernameOrEmail)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return goCatalog.Identity{}, mapError("find user", err)
	}

	match, err := s.hasher.Verify(pw, u.PasswordHash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return goCatalog.Identity{}, goCatalog.ErrInvalidCredentials
	}
	if err != nil {
		return goCatalog.Identity{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return goCatalog.Identity{}, goCatalog.ErrInvalidCredentials
	}
	return s.identity(ctx, s.db, u)
}

func (s *Users) FindBySubject(ctx context.Context, subject string) (goCatalog.Identity, error) {
	u := new(userModel)
	if err := s.db.NewSelect().Model(u).Where("username = ?", subject).Scan(ctx); err != nil {
		return goCatalog.Identity{}, mapError("find user", err)
	}
	return s.identity(ctx, s.db, u)
}

func (s *Users) CreateUser(ctx context.Context, nu goCatalog.NewUser) (goCatalog.Identity, error) {
	var id goCatalog.Identity
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		u := &userModel{
			Username:     nu.Username,
			Email:        strings.ToLower(nu.Email),
			PasswordHash: nu.PasswordHash,
			CreatedAt:    s.now().UTC(),
		}
		if _, err := tx.NewInsert().Model(u).Returning("id").Exec(ctx); err != nil {
			return mapError("insert user", err)
		}

		if len(nu.Roles) > 0 {
			roles := make([]userRoleModel, len(nu.Roles))
			for i, r := range nu.Roles {
				roles[i] = userRoleModel{UserID: u.ID, Role: r, Position: i}
			}
			if _, err := tx.NewInsert().Model(&roles).Exec(ctx); err != nil {
				return mapError("insert user roles", err)
			}
		}

		id = goCatalog.Identity{Subject: u.Username, Roles: append([]string(nil), nu.Roles...)}
		return nil
	})
	return id, err
}

func (s *Users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", strings.ToLower(email))
}

func (s *Users) exists(ctx context.Context, query string, arg any) (bool, error) {
	ok, err := s.db.NewSelect().Model((*userModel)(nil)).Where(query, arg).Exists(ctx)
	if err != nil {
		return false, mapError("check user", err)
	}
	return ok, nil
}

func (s *Users) identity(ctx context.Context, db bun.IDB, u *userModel) (goCatalog.Identity, error) {
	var rows []userRoleModel
	err := db.NewSelect().
		Model(&rows).
		Where("user_id = ?", u.ID).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return goCatalog.Identity{}, mapError("load roles", err)
	}
	roles := make([]string, len(rows))
	for i, r := range rows {
		roles[i] = r.Role
	}
	return goCatalog.Identity{Subject: u.Username, Roles: roles}, nil
}
