package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mediabridge/mediabridge/internal/transfer"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "MEDIABRIDGE"
	configFileName = "config"
	dotEnvFileName = ".env"
)

// SetDefaults registers every key so that environment overrides such as
// MEDIABRIDGE_SEEDR_PASSWORD resolve during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("window_size", transfer.DefaultWindow)
	v.SetDefault("workers", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("status_addr", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("min_free_space", "")
	v.SetDefault("seedr.base_url", "")
	v.SetDefault("seedr.username", "")
	v.SetDefault("seedr.password", "")
	v.SetDefault("jellyfin.url", "")
	v.SetDefault("jellyfin.api_key", "")
	v.SetDefault("registry.backend", "file")
	v.SetDefault("registry.path", "")
}

// ReadInConfig points v at path, or at the default search locations when
// path is empty, and reads it. A missing default config file is not an
// error; a missing explicit one is.
func ReadInConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDataDir)
		v.AddConfigPath(filepath.Join(home, ".config", "mediabridge"))
		v.SetConfigName(configFileName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// Load decodes and validates everything v knows about.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv exports the variables of every existing .env file among the
// working directory and dirs. Variables already set win.
func LoadDotEnv(dirs ...string) error {
	candidates := []string{dotEnvFileName}
	for _, dir := range dirs {
		candidates = append(candidates, filepath.Join(dir, dotEnvFileName))
	}

	for _, file := range candidates {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}
