// Package config loads the YAML configuration file and applies environment
// overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mgvlab/kandel/pkg/logger"
)

// ChainConfig locates the exchange deployment on one chain.
type ChainConfig struct {
	RPCURL       string `yaml:"rpc_url"`
	ChainID      int64  `yaml:"chain_id"`
	Mangrove     string `yaml:"mangrove"`      // core exchange contract
	Reader       string `yaml:"reader"`        // read helper contract
	KandelSeeder string `yaml:"kandel_seeder"` // position factory
}

// MarketConfig names the traded pair.
type MarketConfig struct {
	Base        string `yaml:"base"`         // base token address
	Quote       string `yaml:"quote"`        // quote token address
	TickSpacing int64  `yaml:"tick_spacing"` // offer list tick spacing
}

// Config is the full application configuration.
type Config struct {
	Chain  ChainConfig   `yaml:"chain"`
	Market MarketConfig  `yaml:"market"`
	Log    logger.Config `yaml:"log"`

	// StorePath is the Badger directory for position bookkeeping.
	StorePath string `yaml:"store_path"`
	// TokenListURL optionally points at an HTTP token list used as a
	// fallback for token metadata.
	TokenListURL string `yaml:"token_list_url"`
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Chain.RPCURL == "" {
		return nil, fmt.Errorf("config: chain.rpc_url is required (or set KANDEL_RPC_URL)")
	}
	if cfg.Chain.ChainID == 0 {
		return nil, fmt.Errorf("config: chain.chain_id is required")
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Log: logger.Config{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		StorePath: "data/positions",
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KANDEL_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("KANDEL_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = id
		}
	}
	if v := os.Getenv("KANDEL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("KANDEL_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("KANDEL_TOKEN_LIST_URL"); v != "" {
		cfg.TokenListURL = v
	}
}
