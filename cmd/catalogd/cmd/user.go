package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/password"
	"github.com/MrEthical07/goCatalog/permission"
	"github.com/MrEthical07/goCatalog/store/bunstore"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts in the SQL store",
}

var (
	userUsername string
	userEmail    string
	userPassword string
	userRoles    []string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Example: `  catalogd user create --username alice --email alice@example.com --password s3cret --role ADMIN
  catalogd user create --username bob --email bob@example.com --password s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roles, err := normalizeRoles(userRoles)
		if err != nil {
			return err
		}

		hasher, err := password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return err
		}
		if err := hasher.CheckLength(userPassword); err != nil {
			return fmt.Errorf("password: %w", err)
		}
		hash, err := hasher.Hash(userPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer bunstore.Close(db)

		users := bunstore.NewUsers(db, hasher, nil)
		id, err := users.CreateUser(cmd.Context(), goCatalog.NewUser{
			Username:     strings.TrimSpace(userUsername),
			Email:        strings.TrimSpace(userEmail),
			PasswordHash: hash,
			Roles:        roles,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		logger.Info("user created", zap.String("username", id.Subject), zap.Strings("roles", id.Roles))
		return nil
	},
}

func normalizeRoles(in []string) ([]string, error) {
	known := permission.DefaultRoles()
	var roles []string
	for _, r := range in {
		role := permission.NormalizeRole(r)
		if role == "" {
			continue
		}
		if !known.Known(role) {
			return nil, fmt.Errorf("%w: %s", goCatalog.ErrUnknownRole, role)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = []string{permission.RoleUser}
	}
	return roles, nil
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userUsername, "username", "", "Login name")
	f.StringVar(&userEmail, "email", "", "Email address")
	f.StringVar(&userPassword, "password", "", "Plaintext password")
	f.StringSliceVar(&userRoles, "role", nil, "Role to grant; repeatable (default USER)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
