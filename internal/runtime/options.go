package runtime

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/estimate-executor/internal/adapters/config/file"
	"github.com/tjfontaine/estimate-executor/internal/email"
)

// Option configures an App.
type Option func(*App) error

// WithFileConfig loads configuration from a YAML file and reloads the company
// list when it changes.
func WithFileConfig(path string) Option {
	return func(a *App) error {
		provider, err := file.NewProvider(path, a.logger)
		if err != nil {
			return fmt.Errorf("create file config provider: %w", err)
		}
		a.config = provider
		return nil
	}
}

// WithConfigProvider sets a custom configuration source.
func WithConfigProvider(provider ConfigProvider) Option {
	return func(a *App) error {
		a.config = provider
		return nil
	}
}

// WithLogger sets the logger. Apply it before options that capture the
// logger, such as WithFileConfig.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithMailer replaces the Resend client built from configuration.
func WithMailer(sender email.Sender) Option {
	return func(a *App) error {
		a.mailer = sender
		return nil
	}
}

// WithMetricsRegistry registers metrics with reg and serves them from /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *App) error {
		a.metricsRegistry = reg
		return nil
	}
}

// WithListener serves on ln instead of the configured port.
func WithListener(ln net.Listener) Option {
	return func(a *App) error {
		a.listener = ln
		return nil
	}
}

// WithClock overrides the time source used for pricing and challenges.
func WithClock(now func() time.Time) Option {
	return func(a *App) error {
		a.now = now
		return nil
	}
}
