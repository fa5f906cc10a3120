// Package config loads the run configuration and the secrets needed to publish.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/pepy-stats/internal/domain"
	"github.com/naka-gawa/pepy-stats/internal/gateway"
	"gopkg.in/yaml.v3"
)

// Environment variables read at startup.
const (
	EnvGistToken  = "GH_GIST_PAT"
	EnvGistID     = "RUSTYBEARS_GIST_ID"
	EnvPepyAPIKey = "PEPY_API_KEY"
)

// Config holds the run configuration. Secrets are kept apart in Secrets.
type Config struct {
	Mode        domain.Mode        `yaml:"mode"`
	Packages    []domain.PackageID `yaml:"packages"`
	Pairs       []domain.RatioPair `yaml:"pairs"`
	Concurrency int                `yaml:"concurrency"`
	Stats       StatsConfig        `yaml:"stats"`
	Gist        GistConfig         `yaml:"gist"`
}

// StatsConfig configures the download statistics API.
type StatsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GistConfig configures the destination gist file.
type GistConfig struct {
	Filename         string        `yaml:"filename"`
	UserAgent        string        `yaml:"user_agent"`
	APIBaseURL       string        `yaml:"api_base_url"`
	MaxRateLimitWait time.Duration `yaml:"max_rate_limit_wait"`
}

// Default returns the built-in configuration: pandas against polars, daily mode.
func Default() *Config {
	return &Config{
		Mode:        domain.ModeDaily,
		Packages:    []domain.PackageID{"pandas", "polars"},
		Pairs:       []domain.RatioPair{{A: "pandas", B: "polars"}},
		Concurrency: 1,
		Stats: StatsConfig{
			BaseURL: gateway.DefaultStatsBaseURL,
		},
		Gist: GistConfig{
			Filename:  "rustybears.json",
			UserAgent: "rustybears",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any.
// A file that lists its own packages without any pairs reports no ratios,
// since the default pair refers to the default packages.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var present struct {
		Packages yaml.Node `yaml:"packages"`
		Pairs    yaml.Node `yaml:"pairs"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if present.Packages.Kind != 0 && present.Pairs.Kind == 0 {
		cfg.Pairs = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := domain.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if len(c.Packages) == 0 {
		return errors.New("at least one package is required")
	}
	seen := make(map[domain.PackageID]bool, len(c.Packages))
	for _, p := range c.Packages {
		if p == "" {
			return errors.New("package names must not be empty")
		}
		if seen[p] {
			return fmt.Errorf("package %q listed twice", p)
		}
		seen[p] = true
	}
	for _, pair := range c.Pairs {
		if pair.A == "" || pair.B == "" {
			return errors.New("ratio pairs need both a and b")
		}
		if pair.A == pair.B {
			return fmt.Errorf("ratio pair compares %q with itself", pair.A)
		}
		if !seen[pair.A] || !seen[pair.B] {
			return fmt.Errorf("ratio pair %s/%s refers to a package that is not fetched", pair.A, pair.B)
		}
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.Stats.BaseURL == "" {
		return errors.New("stats.base_url is required")
	}
	if c.Gist.Filename == "" {
		return errors.New("gist.filename is required")
	}
	return nil
}

// ConfigurationError reports a required secret that is not set.
type ConfigurationError struct {
	Variable string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s environment variable is not set", e.Variable)
}

// Secrets are the credentials read once from the environment at startup.
type Secrets struct {
	GistToken  string
	GistID     string
	PepyAPIKey string
}

// LoadSecrets reads the secrets through lookup, usually os.LookupEnv.
// The gist token and id are required; the pepy key is optional.
func LoadSecrets(lookup func(string) (string, bool)) (Secrets, error) {
	var s Secrets
	for _, req := range []struct {
		name string
		dst  *string
	}{
		{EnvGistToken, &s.GistToken},
		{EnvGistID, &s.GistID},
	} {
		v, ok := lookup(req.name)
		if !ok || v == "" {
			return Secrets{}, &ConfigurationError{Variable: req.name}
		}
		*req.dst = v
	}
	s.PepyAPIKey, _ = lookup(EnvPepyAPIKey)
	return s, nil
}
