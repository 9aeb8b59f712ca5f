package config

// Package config provides a reusable loader for node configuration files
// and environment variables. It is versioned so that binaries can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/synnergy-chain/manynet/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// ModuleConfig toggles a single pluggable module on or off and carries its
// attribute id, used by the registry at startup (§4.7).
type ModuleConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	AttributeID uint32 `mapstructure:"attribute_id" json:"attribute_id"`
}

// MigrationEntry is one row of the migration height table (§4.11). Height is
// the block at which the named migration's initialize/update/hotfix callback
// takes effect; enabling a migration with no entry here is refused in strict
// mode.
type MigrationEntry struct {
	Name        string         `mapstructure:"name" json:"name"`
	BlockHeight uint64         `mapstructure:"block_height" json:"block_height"`
	Issue       string         `mapstructure:"issue" json:"issue,omitempty"`
	Extra       map[string]any `mapstructure:"extra" json:"extra,omitempty"`
	Disabled    bool           `mapstructure:"disabled" json:"disabled,omitempty"`
}

// Config represents the unified configuration for a many-node process. It
// mirrors the structure of the YAML files under config/.
type Config struct {
	Server struct {
		Identity        string `mapstructure:"identity" json:"identity"`
		ListenAddr      string `mapstructure:"listen_addr" json:"listen_addr"`
		TimeoutSeconds  int64  `mapstructure:"timeout_seconds" json:"timeout_seconds"`
		ConsensusDriven bool   `mapstructure:"consensus_driven" json:"consensus_driven"`
	} `mapstructure:"server" json:"server"`

	Storage struct {
		DBPath        string `mapstructure:"db_path" json:"db_path"`
		CacheCapacity int    `mapstructure:"cache_capacity" json:"cache_capacity"`
	} `mapstructure:"storage" json:"storage"`

	Modules map[string]ModuleConfig `mapstructure:"modules" json:"modules"`

	Migrations []MigrationEntry `mapstructure:"migrations" json:"migrations"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the MANY_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("MANY_ENV", ""))
}

// MigrationHeight returns the configured block height for a migration name
// and whether a config entry exists for it at all. The migration engine
// (§4.11) uses the boolean to refuse enabling a migration with no entry in
// strict mode.
func (c *Config) MigrationHeight(name string) (uint64, bool) {
	for _, m := range c.Migrations {
		if m.Name == name {
			return m.BlockHeight, true
		}
	}
	return 0, false
}

// ModuleEnabled reports whether the named module is enabled, defaulting to
// true when no entry is present so a fresh config doesn't silently disable
// every module.
func (c *Config) ModuleEnabled(name string) bool {
	m, ok := c.Modules[name]
	if !ok {
		return true
	}
	return m.Enabled
}
