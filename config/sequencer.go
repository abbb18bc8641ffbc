package config

import (
	"fmt"
	"time"
)

type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AuctionConfig struct {
	RoundDuration time.Duration `mapstructure:"round_duration"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type RelayerConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Retries uint   `mapstructure:"retries"`
}

type SequencerConfig struct {
	LogLevel       string                 `mapstructure:"log_level"`
	Environment    string                 `mapstructure:"environment"`
	ChainDataURL   string                 `mapstructure:"chain_data_url"`
	Redis          RedisConfig            `mapstructure:"redis"`
	Server         ServerConfig           `mapstructure:"server"`
	Chains         map[string]ChainConfig `mapstructure:"chains"`
	SubgraphPrefix string                 `mapstructure:"subgraph_prefix"`
	Auction        AuctionConfig          `mapstructure:"auction"`
	Relayer        RelayerConfig          `mapstructure:"relayer"`
}

var sequencerDefaults = map[string]interface{}{
	"log_level":              "info",
	"environment":            EnvProduction,
	"chain_data_url":         "",
	"redis.host":             "",
	"redis.port":             0,
	"server.host":            "0.0.0.0",
	"server.port":            8081,
	"subgraph_prefix":        "",
	"auction.round_duration": 30 * time.Second,
	"auction.check_interval": 5 * time.Second,
	"relayer.url":            "",
	"relayer.api_key":        "",
	"relayer.retries":        3,
}

// LoadSequencerConfig reads and validates the sequencer configuration.
func LoadSequencerConfig(path string) (*SequencerConfig, error) {
	v, err := newViper(path, sequencerDefaults)
	if err != nil {
		return nil, err
	}

	var c SequencerConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode sequencer config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *SequencerConfig) Validate() error {
	if err := validateCommon(c.LogLevel, c.Environment); err != nil {
		return fmt.Errorf("sequencer config: %w", err)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("sequencer config: %w", ErrServerPort)
	}
	if c.Auction.RoundDuration <= 0 || c.Auction.CheckInterval <= 0 {
		return fmt.Errorf("sequencer config: %w", ErrRoundDuration)
	}
	return nil
}

func (c *SequencerConfig) Domains() []string {
	return sortedDomains(c.Chains)
}

func (c *SequencerConfig) SubgraphOverrides() map[string]string {
	return subgraphOverrides(c.Chains)
}

// DefaultSequencerConfig is a valid configuration with no chains.
func DefaultSequencerConfig() *SequencerConfig {
	return &SequencerConfig{
		LogLevel:    "info",
		Environment: EnvProduction,
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8081},
		Chains:      map[string]ChainConfig{},
		Auction:     AuctionConfig{RoundDuration: 30 * time.Second, CheckInterval: 5 * time.Second},
		Relayer:     RelayerConfig{Retries: 3},
	}
}

// LookupChainDataURL reads only chain_data_url from path and the environment.
// The sequencer needs it before its configuration is validated.
func LookupChainDataURL(path string) string {
	v, err := newViper(path, nil)
	if err != nil {
		return ""
	}
	return v.GetString("chain_data_url")
}
