package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	goCatalog "github.com/MrEthical07/goCatalog"
	"github.com/MrEthical07/goCatalog/internal/config"
	"github.com/MrEthical07/goCatalog/internal/httpapi"
	"github.com/MrEthical07/goCatalog/metrics/export/prometheus"
	"github.com/MrEthical07/goCatalog/permission"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting catalogd", zap.String("version", Version), zap.Stringer("config", cfg))

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := bootstrapAdmin(ctx, a.engine, cfg.Admin); err != nil {
			return err
		}

		opts := httpapi.RouterOptions{
			Engine:  a.engine,
			Logger:  logger.Named("http"),
			Version: Version,
		}
		if cfg.Metrics.Enabled {
			opts.MetricsHandler = prometheus.NewExporter(a.engine).Handler()
		}

		srv := &http.Server{
			Addr:         cfg.Addr,
			Handler:      httpapi.NewRouter(opts),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("listening", zap.String("addr", cfg.Addr))
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP bind address (env: CATALOGD_ADDR)")
	_ = v.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func bootstrapAdmin(ctx context.Context, engine *goCatalog.Engine, admin config.AdminConfig) error {
	if admin.Username == "" {
		return nil
	}

	_, err := engine.Register(ctx, goCatalog.SignUpRequest{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		Roles:    []string{permission.RoleAdmin},
	})
	switch {
	case err == nil:
		logger.Info("bootstrap admin created", zap.String("username", admin.Username))
	case errors.Is(err, goCatalog.ErrDuplicateKey):
		logger.Debug("bootstrap admin already exists", zap.String("username", admin.Username))
	default:
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	return nil
}
