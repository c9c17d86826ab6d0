// Package config provides a reusable loader for campaign configuration
// files and environment variables, versioned so callers can depend on a
// stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"contractfuzz/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the campaign configuration surface. Fields carry snake_case
// mapstructure tags, so a YAML file names them in snake_case.
type Config struct {
	Seed                    uint64   `mapstructure:"seed" json:"seed"`
	FailFast                bool     `mapstructure:"fail_fast" json:"fail_fast"`
	MaxRounds               uint64   `mapstructure:"max_rounds" json:"max_rounds"`
	Budget                  uint64   `mapstructure:"budget" json:"budget"`
	Accounts                []string `mapstructure:"accounts" json:"accounts"`
	OnlyMutable             bool     `mapstructure:"only_mutable" json:"only_mutable"`
	MaxSequenceTypeSize     int      `mapstructure:"max_sequence_type_size" json:"max_sequence_type_size"`
	MaxNumberOfTransactions int      `mapstructure:"max_number_of_transactions" json:"max_number_of_transactions"`
	MaxOptimizationRounds   int      `mapstructure:"max_optimization_rounds" json:"max_optimization_rounds"`
	GasLimit                uint64   `mapstructure:"gas_limit" json:"gas_limit"`
	PropertyPrefix          string   `mapstructure:"property_prefix" json:"property_prefix"`
	FuzzPropertyMaxRounds   int      `mapstructure:"fuzz_property_max_rounds" json:"fuzz_property_max_rounds"`
	UseTUI                  bool     `mapstructure:"use_tui" json:"use_tui"`
	SnapshotCacheCapacity   int      `mapstructure:"snapshot_cache_capacity" json:"snapshot_cache_capacity"`
	HashFunction            string   `mapstructure:"hash_function" json:"hash_function"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Seed:                    0,
		FailFast:                true,
		MaxRounds:               1000,
		Budget:                  1_000_000_000_000,
		Accounts:                []string{"0101010101010101010101010101010101010101010101010101010101010101", "0202020202020202020202020202020202020202020202020202020202020202"},
		OnlyMutable:             true,
		MaxSequenceTypeSize:     10,
		MaxNumberOfTransactions: 50,
		MaxOptimizationRounds:   50,
		PropertyPrefix:          "inkscope_",
		FuzzPropertyMaxRounds:   100,
	}
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads the campaign configuration file and merges any
// environment-specific overrides on top of defaults. The
// resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional
// config files (e.g. "staging" merges staging.yaml over default.yaml). If
// env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("CONTRACTFUZZ")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the CONTRACTFUZZ_ENV environment
// variable to select an overlay.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("CONTRACTFUZZ_ENV", ""))
}
