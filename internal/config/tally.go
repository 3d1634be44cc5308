package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TallyConfig describes how to reach the Tally XML listener.
type TallyConfig struct {
	Host           string        `mapstructure:"host"`
	CompanyName    string        `mapstructure:"companyName"`
	SalesAccount   string        `mapstructure:"salesAccount"`
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	ProbeTimeout   time.Duration `mapstructure:"probeTimeout"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	RetryBackoff   time.Duration `mapstructure:"retryBackoff"`
}

func DefaultTallyConfig() TallyConfig {
	return TallyConfig{
		Host:           "http://localhost:9000",
		CompanyName:    "DevCompany",
		SalesAccount:   "Sales",
		RequestTimeout: 30 * time.Second,
		ProbeTimeout:   5 * time.Second,
		MaxAttempts:    1,
		RetryBackoff:   500 * time.Millisecond,
	}
}

// LoadTally reads the optional tally.yml file, then applies TALLY_* env overrides.
// The result is read once at start; changes require a restart.
func LoadTally() (TallyConfig, error) {
	v := viper.New()

	v.SetConfigName("tally")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tallybridge")
	v.AddConfigPath(".")

	defaults := DefaultTallyConfig()
	v.SetDefault("tally.host", defaults.Host)
	v.SetDefault("tally.companyName", defaults.CompanyName)
	v.SetDefault("tally.salesAccount", defaults.SalesAccount)
	v.SetDefault("tally.requestTimeout", defaults.RequestTimeout)
	v.SetDefault("tally.probeTimeout", defaults.ProbeTimeout)
	v.SetDefault("tally.maxAttempts", defaults.MaxAttempts)
	v.SetDefault("tally.retryBackoff", defaults.RetryBackoff)

	_ = v.BindEnv("tally.host", "TALLY_HOST")
	_ = v.BindEnv("tally.companyName", "TALLY_COMPANY_NAME")
	_ = v.BindEnv("tally.salesAccount", "TALLY_SALES_ACCOUNT")
	_ = v.BindEnv("tally.requestTimeout", "TALLY_REQUEST_TIMEOUT")
	_ = v.BindEnv("tally.probeTimeout", "TALLY_PROBE_TIMEOUT")
	_ = v.BindEnv("tally.maxAttempts", "TALLY_MAX_ATTEMPTS")
	_ = v.BindEnv("tally.retryBackoff", "TALLY_RETRY_BACKOFF")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return TallyConfig{}, err
		}
	}

	var cfg TallyConfig
	if err := v.UnmarshalKey("tally", &cfg); err != nil {
		return TallyConfig{}, err
	}
	cfg = normalizeTally(cfg)
	if err := validateTally(cfg); err != nil {
		return TallyConfig{}, err
	}
	return cfg, nil
}

func normalizeTally(cfg TallyConfig) TallyConfig {
	defaults := DefaultTallyConfig()
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	cfg.CompanyName = strings.TrimSpace(cfg.CompanyName)
	cfg.SalesAccount = strings.TrimSpace(cfg.SalesAccount)
	if cfg.SalesAccount == "" {
		cfg.SalesAccount = defaults.SalesAccount
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	return cfg
}

func validateTally(cfg TallyConfig) error {
	parsed, err := url.Parse(cfg.Host)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tally.host must be an absolute URL, got %q", cfg.Host)
	}
	if cfg.CompanyName == "" {
		return errors.New("tally.companyName cannot be empty")
	}
	return nil
}
