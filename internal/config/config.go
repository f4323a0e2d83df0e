package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Store struct {
		// Driver selects the scene store: "postgres" or "memory".
		Driver string `mapstructure:"driver"`
	} `mapstructure:"store"`
	Pipeline struct {
		StageAttempts    int `mapstructure:"stage_attempts"`
		StageTimeoutSecs int `mapstructure:"stage_timeout_seconds"`
	} `mapstructure:"pipeline"`
	Providers []ProviderConfig `mapstructure:"providers"`
	TLS       struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// ProviderConfig describes one generation backend in fallback order.
type ProviderConfig struct {
	ID           string   `mapstructure:"id"`
	Kind         string   `mapstructure:"kind"`
	Rank         int      `mapstructure:"rank"`
	Capabilities []string `mapstructure:"capabilities"`
	// RPS caps request pacing toward the backend; 0 disables the limiter.
	RPS float64 `mapstructure:"rps"`
	// MaxAttempts bounds retries against this backend before falling
	// through to the next rank.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// StageTimeout returns the per-stage timeout as a duration.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Pipeline.StageTimeoutSecs) * time.Second
}

// LoadConfig loads the configuration from a file and the environment. An
// explicit path overrides the default search locations.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("store.driver", "postgres")
	viper.SetDefault("pipeline.stage_attempts", 2)
	viper.SetDefault("pipeline.stage_timeout_seconds", 90)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	for i := range config.Providers {
		if config.Providers[i].MaxAttempts <= 0 {
			config.Providers[i].MaxAttempts = 3
		}
	}
	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(c *Config) error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
