package company

import (
	"log/slog"

	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
)

// Reloader returns a callback that rebuilds reg from a fresh configuration.
// Invalid company lists are logged and leave reg unchanged.
func Reloader(reg *Registry, catalog *pricing.Catalog, logger *slog.Logger) func(*config.Config) {
	return func(cfg *config.Config) {
		companies, err := FromConfig(cfg.Companies, catalog)
		if err == nil {
			err = reg.Replace(companies...)
		}
		if err != nil {
			logger.Error("company reload rejected", slog.String("error", err.Error()))
			return
		}
		logger.Info("companies reloaded",
			slog.Int("companies", len(companies)),
			slog.Int("domains", len(reg.Domains())))
	}
}
