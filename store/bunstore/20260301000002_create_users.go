package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(upCreateUsers, downCreateUsers)
}

func upCreateUsers(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*userModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.NewCreateTable().
		Model((*userRoleModel)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_roles table: %w", err)
	}
	return nil
}

func downCreateUsers(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().Model((*userRoleModel)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*userModel)(nil)).IfExists().Exec(ctx)
	return err
}
