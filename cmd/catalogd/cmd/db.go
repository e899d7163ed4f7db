package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/store/bunstore"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer bunstore.Close(db)

		group, err := bunstore.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		if group.IsZero() {
			logger.Info("no new migrations to apply")
		} else {
			logger.Info("applied migration group", zap.Int64("group", group.ID), zap.Stringer("migrations", group.Migrations))
		}
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer bunstore.Close(db)

		ms, err := bunstore.Status(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, m := range ms {
			status := "pending"
			if m.GroupID > 0 {
				status = fmt.Sprintf("applied (group %d)", m.GroupID)
			}
			fmt.Fprintf(out, "%s: %s\n", m.Name, status)
		}
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer bunstore.Close(db)

		group, err := bunstore.Rollback(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if group.IsZero() {
			logger.Info("no migration groups to roll back")
		} else {
			logger.Info("rolled back migration group", zap.Int64("group", group.ID), zap.Stringer("migrations", group.Migrations))
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd, dbStatusCmd, dbRollbackCmd)
}
