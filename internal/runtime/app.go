// Package runtime assembles the estimate executor from configuration and
// manages its lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/estimate-executor/internal/altcha"
	"github.com/tjfontaine/estimate-executor/internal/company"
	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/email"
	"github.com/tjfontaine/estimate-executor/internal/endpoints"
	"github.com/tjfontaine/estimate-executor/internal/executor"
	"github.com/tjfontaine/estimate-executor/internal/pipeline"
	"github.com/tjfontaine/estimate-executor/internal/pkg/safehttp"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
	"github.com/tjfontaine/estimate-executor/internal/server"
	"github.com/tjfontaine/estimate-executor/internal/telemetry"
)

// ConfigProvider loads configuration and reports changes.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Current() *config.Config
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}

// App is a running estimate executor: configuration, company registry,
// request pipeline and HTTP server.
type App struct {
	// Dependencies (injected via options)
	config          ConfigProvider
	logger          *slog.Logger
	mailer          email.Sender
	metricsRegistry *prometheus.Registry
	listener        net.Listener
	now             func() time.Time

	registry *company.Registry
	guard    *altcha.ReplayGuard
	metrics  *telemetry.Metrics
	server   *server.Server
	served   chan error

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// New creates an App. WithFileConfig or WithConfigProvider is required.
func New(opts ...Option) (*App, error) {
	a := &App{
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if a.config == nil {
		return nil, errors.New("config provider required (use WithFileConfig or WithConfigProvider)")
	}
	if a.metricsRegistry == nil {
		a.metricsRegistry = prometheus.NewRegistry()
	}
	return a, nil
}

// Start loads configuration, builds the request pipeline and starts serving.
// It returns once the listener is bound. A failed Start releases what it
// acquired and may be retried.
func (a *App) Start(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return errors.New("app already started")
	}

	a.ctx, a.cancel = context.WithCancel(ctx)
	defer func() {
		if err != nil {
			a.abortStart()
		}
	}()

	cfg, err := a.config.Load(a.ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	inflation, err := pricing.ParseInflation(cfg.Pricing.InflationStart, cfg.Pricing.MonthlyRate)
	if err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	catalog := pricing.NewCatalog(inflation, pricing.Services(), pricing.WithClock(a.now))

	companies, err := company.FromConfig(cfg.Companies, catalog)
	if err != nil {
		return fmt.Errorf("companies: %w", err)
	}
	if a.registry, err = company.NewRegistry(companies...); err != nil {
		return fmt.Errorf("companies: %w", err)
	}

	if a.guard, err = altcha.NewReplayGuard(cfg.Altcha.ReplayCacheSize, cfg.Altcha.Expiration); err != nil {
		return fmt.Errorf("altcha replay guard: %w", err)
	}

	if a.metrics == nil {
		a.metrics = telemetry.NewMetrics(a.metricsRegistry)
	}
	metrics := a.metrics

	mailer := a.mailer
	if mailer == nil {
		opts := []email.ResendOption{
			email.WithRetryMax(cfg.Resend.RetryMax),
			email.WithTimeout(cfg.Resend.HTTPTimeout),
			email.WithLogger(a.logger),
		}
		if cfg.Environment == config.EnvironmentProduction {
			opts = append(opts, email.WithTransport(safehttp.Transport()))
		}
		mailer = email.NewResendClient(cfg.Resend.BaseURL, cfg.Resend.APIKey, opts...)
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		return fmt.Errorf("email templates: %w", err)
	}

	routes := endpoints.Routes(&endpoints.Deps{
		Challenges: endpoints.ChallengeOptions{
			HMACKey:    cfg.Altcha.HMACKey,
			MaxNumber:  cfg.Altcha.MaxNumber,
			Expiration: cfg.Altcha.Expiration,
		},
		Verifier: &altcha.Verifier{HMACKey: cfg.Altcha.HMACKey, Guard: a.guard, Now: a.now},
		Catalog:  catalog,
		Mailer:   email.Observed(mailer, metrics.EmailSent),
		Renderer: renderer,
		Recipients: email.RecipientPolicy{
			Local:        cfg.Environment == config.EnvironmentLocal,
			DevRecipient: cfg.Email.DevRecipient,
			TestContact:  cfg.Email.TestContact,
		},
		From:            cfg.Email.From,
		ReplyTo:         cfg.Email.ReplyTo,
		Now:             a.now,
		Logger:          a.logger,
		PipelineOptions: []pipeline.Option{pipeline.WithObserver(metrics)},
	})

	exec := executor.New(a.registry, routes,
		pipeline.WithLogger(a.logger),
		pipeline.WithObserver(metrics))

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         a.logger,
		Registry:       a.registry,
		Executor:       exec,
		Env:            a.config.Current,
		Gatherer:       a.metricsRegistry,
	})

	ln := a.listener
	if ln == nil {
		if ln, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		a.listener = ln
	}

	a.server = srv
	a.served = make(chan error, 1)
	go func() {
		a.served <- srv.Serve(ln)
	}()

	if err := a.config.Watch(a.ctx, company.Reloader(a.registry, catalog, a.logger)); err != nil {
		a.logger.Warn("config watch unavailable", slog.String("error", err.Error()))
	}

	a.logger.Info("estimate executor started",
		slog.String("addr", ln.Addr().String()),
		slog.String("environment", cfg.Environment),
		slog.Int("companies", len(companies)))

	return nil
}

// abortStart undoes a partial Start. Callers hold a.mu.
func (a *App) abortStart() {
	a.cancel()
	a.cancel = nil
	if a.guard != nil {
		a.guard.Close()
		a.guard = nil
	}
	a.registry = nil
}

// Addr returns the address the server listens on, or nil before Start.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Registry returns the live company registry, or nil before Start.
func (a *App) Registry() *company.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registry
}

// Shutdown stops the server and waits for in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("shutting down")

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
		if err := <-a.served; err != nil {
			errs = append(errs, fmt.Errorf("serve: %w", err))
		}
		a.server = nil
	}
	if a.guard != nil {
		a.guard.Close()
		a.guard = nil
	}
	if err := a.config.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close config: %w", err))
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
