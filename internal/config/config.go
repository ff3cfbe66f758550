package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. ESTIMATE_RESEND__API_KEY
// sets resend.api_key.
const EnvPrefix = "ESTIMATE_"

// DefaultPath is read when no path is given.
const DefaultPath = "config.yaml"

const (
	EnvironmentLocal      = "local"
	EnvironmentProduction = "production"
)

type Config struct {
	Environment string          `koanf:"environment"`
	Server      ServerConfig    `koanf:"server"`
	Log         LogConfig       `koanf:"log"`
	Altcha      AltchaConfig    `koanf:"altcha"`
	Resend      ResendConfig    `koanf:"resend"`
	Email       EmailConfig     `koanf:"email"`
	Pricing     PricingConfig   `koanf:"pricing"`
	Telemetry   TelemetryConfig `koanf:"telemetry"`
	Companies   []CompanyConfig `koanf:"companies"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type AltchaConfig struct {
	HMACKey    string        `koanf:"hmac_key"`
	MaxNumber  int64         `koanf:"max_number"`
	Expiration time.Duration `koanf:"expiration"`
	// ReplayCacheSize bounds the number of remembered solutions.
	ReplayCacheSize int64 `koanf:"replay_cache_size"`
}

type ResendConfig struct {
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	RetryMax    int           `koanf:"retry_max"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
}

type EmailConfig struct {
	From    string `koanf:"from"`
	ReplyTo string `koanf:"reply_to"`
	// DevRecipient receives all mail when Environment is local or when the
	// contact address equals TestContact.
	DevRecipient string `koanf:"dev_recipient"`
	TestContact  string `koanf:"test_contact"`
}

type PricingConfig struct {
	// InflationStart is the year and month ("2025-11") catalog prices were set.
	InflationStart string `koanf:"inflation_start"`
	MonthlyRate    string `koanf:"monthly_rate"`
}

type TelemetryConfig struct {
	Tracing bool `koanf:"tracing"`
}

type CompanyConfig struct {
	ID         string   `koanf:"id"`
	Name       string   `koanf:"name"`
	Domains    []string `koanf:"domains"`
	Recipients []string `koanf:"recipients"`
	Services   []string `koanf:"services"`
	// ContactFields are extra string fields accepted under contact.extra.
	ContactFields []string `koanf:"contact_fields"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"environment":              EnvironmentProduction,
	"server.port":              8080,
	"server.request_timeout":   "30s",
	"server.max_body_bytes":    1 << 20,
	"log.level":                "info",
	"log.format":               "json",
	"altcha.max_number":        100000,
	"altcha.expiration":        "5m",
	"altcha.replay_cache_size": 10000,
	"resend.base_url":          "https://api.resend.com",
	"resend.retry_max":         2,
	"resend.http_timeout":      "10s",
	"email.from":               "Instant Estimate Central <estimate@estimate.instantestimatecentral.com>",
	"pricing.inflation_start":  "2025-11",
	"pricing.monthly_rate":     "1.00165",
}

// Load reads path (if present), overlays ESTIMATE_ environment variables and
// fills defaults. A missing file is not an error. In production the ALTCHA
// HMAC key and the Resend API key must be set.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadWithoutSecrets is Load for offline commands that neither sign
// challenges nor send mail.
func LoadWithoutSecrets(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, requireSecrets bool) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Altcha.HMACKey = substituteEnvVars(cfg.Altcha.HMACKey)
	cfg.Resend.APIKey = substituteEnvVars(cfg.Resend.APIKey)

	if err := cfg.validate(requireSecrets); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have no usable default, secrets included.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireSecrets bool) error {
	var errs []error
	switch c.Environment {
	case EnvironmentLocal, EnvironmentProduction:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvironmentLocal, EnvironmentProduction, c.Environment))
	}
	if c.Environment == EnvironmentLocal && c.Email.DevRecipient == "" {
		errs = append(errs, errors.New("email.dev_recipient is required in the local environment"))
	}
	if requireSecrets && c.Environment == EnvironmentProduction {
		// An empty HMAC key lets anyone sign their own challenges.
		if c.Altcha.HMACKey == "" {
			errs = append(errs, errors.New("altcha.hmac_key is required in the production environment"))
		}
		if c.Resend.APIKey == "" {
			errs = append(errs, errors.New("resend.api_key is required in the production environment"))
		}
	}
	if c.Altcha.MaxNumber <= 0 {
		errs = append(errs, errors.New("altcha.max_number must be positive"))
	}
	seen := make(map[string]string)
	for _, co := range c.Companies {
		if co.ID == "" {
			errs = append(errs, errors.New("company id cannot be empty"))
		}
		for _, d := range co.Domains {
			if prev, ok := seen[d]; ok {
				errs = append(errs, fmt.Errorf("domain %s is claimed by both %s and %s", d, prev, co.ID))
			}
			seen[d] = co.ID
		}
	}
	return errors.Join(errs...)
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
