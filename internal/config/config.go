// Package config loads the dp application configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file at ~/.config/alertchain/config.yaml, and ALERTCHAIN_* environment
// variables (ALERTCHAIN_AWS_PRIMARY_REGION overrides aws.primary_region).
// Command-line flags are applied on top by cmd/dp.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	awsalerting "github.com/pankaj-dahiya-devops/alertchain/internal/providers/aws/alerting"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "ALERTCHAIN"

// Config is the top-level application configuration.
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Log     LogConfig     `mapstructure:"log"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// DefaultProfile is used when no --profile flag is provided.
	DefaultProfile string `mapstructure:"default_profile"`

	// DefaultRegion is used when no --region flag or profile region is set.
	DefaultRegion string `mapstructure:"default_region"`

	// PrimaryRegion is the account's designated primary region. Controls
	// evaluated in any other region report impact 0.
	PrimaryRegion string `mapstructure:"primary_region"`
}

// AuditConfig bounds the audit fan-out.
type AuditConfig struct {
	// RegionConcurrency caps the regions audited in parallel.
	RegionConcurrency int `mapstructure:"region_concurrency"`

	// RuleConcurrency caps the controls evaluated in parallel per region.
	RuleConcurrency int `mapstructure:"rule_concurrency"`

	// BranchConcurrency caps parallel trail branches and topic lookups.
	BranchConcurrency int `mapstructure:"branch_concurrency"`
}

// GatewayConfig tunes the retry, rate-limit, and breaker wrapper around AWS.
type GatewayConfig struct {
	Attempts        uint          `mapstructure:"attempts"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	MaxBackoff      time.Duration `mapstructure:"max_backoff"`
	RatePerSecond   float64       `mapstructure:"rate_per_second"`
	Burst           int           `mapstructure:"burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerOpenFor  time.Duration `mapstructure:"breaker_open_for"`
}

// LogConfig configures the zerolog console logger.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// Resilience converts the gateway section to the wrapper's settings.
func (g GatewayConfig) Resilience() awsalerting.ResilienceConfig {
	return awsalerting.ResilienceConfig{
		Attempts:        g.Attempts,
		CallTimeout:     g.CallTimeout,
		MaxBackoff:      g.MaxBackoff,
		RatePerSecond:   g.RatePerSecond,
		Burst:           g.Burst,
		BreakerFailures: g.BreakerFailures,
		BreakerOpenFor:  g.BreakerOpenFor,
	}
}

// DefaultPath returns ~/.config/alertchain/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "alertchain", "config.yaml"), nil
}

// Load reads the configuration file at path, or DefaultPath when path is
// empty. A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := awsalerting.DefaultResilienceConfig()

	// Keys without a default are bound explicitly so AutomaticEnv sees them
	// during Unmarshal.
	v.SetDefault("aws.default_profile", "")
	v.SetDefault("aws.default_region", "")
	v.SetDefault("aws.primary_region", "")

	v.SetDefault("audit.region_concurrency", 5)
	v.SetDefault("audit.rule_concurrency", 4)
	v.SetDefault("audit.branch_concurrency", 8)

	v.SetDefault("gateway.attempts", d.Attempts)
	v.SetDefault("gateway.call_timeout", d.CallTimeout)
	v.SetDefault("gateway.max_backoff", d.MaxBackoff)
	v.SetDefault("gateway.rate_per_second", d.RatePerSecond)
	v.SetDefault("gateway.burst", d.Burst)
	v.SetDefault("gateway.breaker_failures", d.BreakerFailures)
	v.SetDefault("gateway.breaker_open_for", d.BreakerOpenFor)

	v.SetDefault("log.level", "warn")
}
