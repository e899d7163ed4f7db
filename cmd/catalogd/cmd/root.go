// Package cmd implements the catalogd command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCatalog/internal/config"
	"github.com/MrEthical07/goCatalog/internal/logging"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	v          *viper.Viper = config.NewViper()
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalogd",
	Short: "Product catalog API server",
	Long: `catalogd serves a product catalog over HTTP with JWT authentication,
role-based write access, and a read-through query cache.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database URL; empty uses in-memory stores (env: CATALOGD_DATABASE_URL)")
	flags.String("redis-addr", "", "Redis address for the shared cache and login throttle (env: CATALOGD_REDIS_ADDR)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env: CATALOGD_LOG_LEVEL)")

	_ = v.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = v.BindPFlag("redis_addr", flags.Lookup("redis-addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, dbCmd, userCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the catalogd version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
