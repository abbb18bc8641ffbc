package config

import (
	"fmt"
	"time"
)

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type CartographerConfig struct {
	PollInterval   time.Duration          `mapstructure:"poll_interval"`
	LogLevel       string                 `mapstructure:"log_level"`
	Database       DatabaseConfig         `mapstructure:"database"`
	Environment    string                 `mapstructure:"environment"`
	ChainDataURL   string                 `mapstructure:"chain_data_url"`
	Chains         map[string]ChainConfig `mapstructure:"chains"`
	SubgraphPrefix string                 `mapstructure:"subgraph_prefix"`
	// Subgraphs overrides the derived subgraph url per domain.
	Subgraphs map[string]string `mapstructure:"subgraphs"`
}

var cartographerDefaults = map[string]interface{}{
	"poll_interval":   15 * time.Second,
	"log_level":       "info",
	"database.url":    "",
	"environment":     EnvProduction,
	"chain_data_url":  "",
	"subgraph_prefix": "",
}

// LoadCartographerConfig reads and validates the cartographer configuration.
func LoadCartographerConfig(path string) (*CartographerConfig, error) {
	v, err := newViper(path, cartographerDefaults)
	if err != nil {
		return nil, err
	}

	var c CartographerConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode cartographer config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *CartographerConfig) Validate() error {
	if err := validateCommon(c.LogLevel, c.Environment); err != nil {
		return fmt.Errorf("cartographer config: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("cartographer config: %w", ErrPollInterval)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("cartographer config: %w", ErrDatabaseURL)
	}
	return nil
}

// Domains lists the configured domains in a stable order.
func (c *CartographerConfig) Domains() []string {
	return sortedDomains(c.Chains)
}

// SubgraphOverrides merges the per-chain subgraph urls with Subgraphs, the latter winning.
func (c *CartographerConfig) SubgraphOverrides() map[string]string {
	overrides := subgraphOverrides(c.Chains)
	for d, u := range c.Subgraphs {
		overrides[d] = u
	}
	return overrides
}
