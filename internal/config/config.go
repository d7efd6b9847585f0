// Package config loads runner configuration from defaults, an optional
// YAML file and ARGO_WF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/me/argowf/pkg/model"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables.
const EnvPrefix = "ARGO_WF"

// DefaultEndpoint is the Argo server address used when none is configured.
const DefaultEndpoint = "http://localhost:2746"

// Engine holds everything needed to talk to the Argo server.
type Engine struct {
	Endpoint           string        `mapstructure:"endpoint"`             // Argo server base URL
	Token              string        `mapstructure:"token"`                // Bearer token
	SemaphoreConfigMap string        `mapstructure:"synchronization_cm"`   // ConfigMap holding the semaphore limit
	Namespace          string        `mapstructure:"namespace"`            // Default namespace
	PollInterval       time.Duration `mapstructure:"poll_interval"`        // Delay between status polls
	Deadline           time.Duration `mapstructure:"deadline"`             // Monitor wall-clock limit, 0 = none
	Timeout            time.Duration `mapstructure:"timeout"`              // Per-request HTTP timeout
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"` // Skip TLS verification
}

// Config is the complete runner configuration.
type Config struct {
	Engine    Engine `mapstructure:",squash"`
	LogLevel  string `mapstructure:"log_level"`  // debug, info, warn, error
	LogFormat string `mapstructure:"log_format"` // text, json
	HistoryDB string `mapstructure:"history_db"` // SQLite path; empty disables history
}

// DefaultEngine returns sensible engine defaults.
func DefaultEngine() Engine {
	return Engine{
		Endpoint:     DefaultEndpoint,
		Namespace:    "default",
		PollInterval: 30 * time.Second,
		Timeout:      30 * time.Second,
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:    DefaultEngine(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Validate checks the settings required before anything is submitted.
func (e Engine) Validate() error {
	if e.Token == "" {
		return &model.ConfigurationError{Key: EnvPrefix + "_TOKEN"}
	}
	if e.Endpoint == "" {
		return &model.ConfigurationError{Key: EnvPrefix + "_ENDPOINT"}
	}
	if e.PollInterval <= 0 {
		return &model.ConfigurationError{Key: EnvPrefix + "_POLL_INTERVAL", Message: "must be positive"}
	}
	return nil
}

// Load layers defaults, the optional YAML file cfgFile and the environment.
// A missing cfgFile is an error; an empty cfgFile skips the file layer.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config file %s not found: %w", cfgFile, err)
			}
			return Config{}, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("endpoint", d.Engine.Endpoint)
	v.SetDefault("token", "")
	v.SetDefault("synchronization_cm", "")
	v.SetDefault("namespace", d.Engine.Namespace)
	v.SetDefault("poll_interval", d.Engine.PollInterval)
	v.SetDefault("deadline", d.Engine.Deadline)
	v.SetDefault("timeout", d.Engine.Timeout)
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("history_db", "")
}
