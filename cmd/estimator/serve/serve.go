// Package serve implements `estimator serve`.
package serve

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/runtime"
	"github.com/tjfontaine/estimate-executor/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func NewCmd() *cobra.Command {
	var (
		cfgPath string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP request executor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env file if it exists
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger := telemetry.NewLogger(cfg.Log, os.Stdout)
			slog.SetDefault(logger)

			shutdownTracer, err := telemetry.InitTracer(telemetry.TracerOptions{Enabled: cfg.Telemetry.Tracing}, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := runtime.New(
				runtime.WithLogger(logger),
				runtime.WithFileConfig(cfgPath),
			)
			if err != nil {
				return err
			}
			if err := app.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Path to config file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	return cmd
}
