// Package config loads graphene settings from flags, an optional YAML
// file, a .env file and GRAPHENE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rcliao/graphene/internal/embedding"
)

// EnvPrefix prefixes every environment override, e.g. GRAPHENE_DB.
const EnvPrefix = "GRAPHENE"

// Config holds all configuration for the application
type Config struct {
	// DB is the snapshot database path.
	DB string `mapstructure:"db"`

	Log        LogConfig        `mapstructure:"log"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Embedding  embedding.Config `mapstructure:"embedding"`
}

// LogConfig controls the logger built by SetupLogger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// EngineConfig holds the assignment and merge knobs.
type EngineConfig struct {
	Alpha         float64 `mapstructure:"alpha"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	Epsilon       float64 `mapstructure:"epsilon"`
	Workers       int     `mapstructure:"workers"`
}

// SimilarityConfig points at an optional YAML similarity table. The
// built-in table is used when Path is empty.
type SimilarityConfig struct {
	Path string `mapstructure:"path"`
}

// New returns a viper instance with defaults, env binding and the config
// file search path set up. cfgFile overrides the search.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".graphene")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadEnv reads a .env file from the working directory if there is one.
func LoadEnv() bool {
	return godotenv.Load() == nil
}

// Read loads the config file into v. A missing file is not an error when
// none was requested explicitly.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.DB == "" {
		cfg.DB = DefaultDBPath()
	}
	return cfg, nil
}

// DefaultDBPath returns ~/.graphene/graphene.db.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".graphene", "graphene.db")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("engine.alpha", 0.3)
	v.SetDefault("engine.min_confidence", 0.6)
	v.SetDefault("engine.epsilon", 0.3)
	v.SetDefault("engine.workers", 1)

	v.SetDefault("similarity.path", "")

	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.url", "")
	v.SetDefault("embedding.api_key", "")
}
