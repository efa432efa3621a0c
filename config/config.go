package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	StatePath string
	LogLevel  string
	LogJSON   bool

	// OperatorKey is a hex private key; Operator is used when it is empty.
	OperatorKey string
	Operator    string

	RPCURL  string
	ChainID int64

	OneInchBaseURL string
	OneInchAPIKey  string

	ListenAddr string
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".swapper")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Set default values
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("chain_id", 1)
	v.SetDefault("oneinch_base_url", "https://api.1inch.io")
	v.SetDefault("listen_addr", "127.0.0.1:8545")

	// Read from environment variables
	v.SetEnvPrefix("SWAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		StatePath:      v.GetString("state_path"),
		LogLevel:       v.GetString("log_level"),
		LogJSON:        v.GetBool("log_json"),
		OperatorKey:    v.GetString("operator_key"),
		Operator:       v.GetString("operator"),
		RPCURL:         v.GetString("rpc_url"),
		ChainID:        v.GetInt64("chain_id"),
		OneInchBaseURL: v.GetString("oneinch_base_url"),
		OneInchAPIKey:  v.GetString("oneinch_api_key"),
		ListenAddr:     v.GetString("listen_addr"),
	}
	if cfg.ChainID <= 0 {
		return nil, fmt.Errorf("chain_id must be positive, got %d", cfg.ChainID)
	}

	globalConfig = cfg
	return cfg, nil
}

// OperatorAddress resolves the operator from the private key or the
// configured address.
func (c *Config) OperatorAddress() (common.Address, error) {
	if c.OperatorKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.OperatorKey, "0x"))
		if err != nil {
			return common.Address{}, fmt.Errorf("invalid operator key: %w", err)
		}
		return crypto.PubkeyToAddress(key.PublicKey), nil
	}
	if c.Operator == "" {
		return common.Address{}, fmt.Errorf("operator not configured. Please set SWAPPER_OPERATOR_KEY or SWAPPER_OPERATOR, or pass --operator")
	}
	if !common.IsHexAddress(c.Operator) {
		return common.Address{}, fmt.Errorf("invalid operator address: %s", c.Operator)
	}
	return common.HexToAddress(c.Operator), nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
