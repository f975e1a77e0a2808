// Package config loads and validates the mediabridge configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mediabridge/mediabridge/internal/bridge"
	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/mediabridge/mediabridge/internal/seedr"
	"github.com/mediabridge/mediabridge/internal/transfer"
	"github.com/mediabridge/mediabridge/internal/utils"
	"gopkg.in/yaml.v3"
)

var (
	home, _             = os.UserHomeDir()
	DefaultDataDir      = filepath.Join(home, ".mediabridge")
	DefaultConfigPath   = filepath.Join(DefaultDataDir, "config.yaml")
	DefaultPollInterval = 30 * time.Second
	MinPollInterval     = time.Second
)

const (
	DefaultLogFileName = "mediabridge.log"
	logsDir            = "logs"
)

var (
	ErrNoRoots         = errors.New("at least one root is required")
	ErrRootSelector    = errors.New("root needs exactly one of prefix, folder_id or folder_name")
	ErrNoBasePath      = errors.New("root base_path is required")
	ErrDuplicateRoot   = errors.New("duplicate root name")
	ErrWindowTooSmall  = errors.New("window_size below minimum")
	ErrPollTooShort    = errors.New("poll_interval below minimum")
	ErrUnknownBackend  = errors.New("unknown registry backend")
	ErrJellyfinAPIKey  = errors.New("jellyfin api_key is required when url is set")
	ErrInvalidLogLevel = errors.New("invalid log_level")
	ErrMinFreeSpace    = errors.New("invalid min_free_space")
)

type Config struct {
	// Path is the config file the values were read from, if any.
	Path string `mapstructure:"-" yaml:"-"`

	DataDir      string         `mapstructure:"data_dir" yaml:"data_dir"`
	PollInterval time.Duration  `mapstructure:"poll_interval" yaml:"-"`
	WindowSize   int64          `mapstructure:"window_size" yaml:"window_size"`
	Workers      int            `mapstructure:"workers" yaml:"workers"`
	LogLevel     string         `mapstructure:"log_level" yaml:"log_level"`
	StatusAddr   string         `mapstructure:"status_addr" yaml:"status_addr,omitempty"`
	Exclude      []string       `mapstructure:"exclude" yaml:"exclude,omitempty"`
	MinFreeSpace string         `mapstructure:"min_free_space" yaml:"min_free_space,omitempty"`
	Seedr        SeedrConfig    `mapstructure:"seedr" yaml:"seedr"`
	Jellyfin     JellyfinConfig `mapstructure:"jellyfin" yaml:"jellyfin,omitempty"`
	Registry     RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Roots        []Root         `mapstructure:"roots" yaml:"roots"`
}

type SeedrConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

type JellyfinConfig struct {
	URL    string `mapstructure:"url" yaml:"url,omitempty"`
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

type RegistryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
}

type Root struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Prefix     string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	FolderID   string `mapstructure:"folder_id" yaml:"folder_id,omitempty"`
	FolderName string `mapstructure:"folder_name" yaml:"folder_name,omitempty"`
	BasePath   string `mapstructure:"base_path" yaml:"base_path"`
	DeleteRoot bool   `mapstructure:"delete_root" yaml:"delete_root,omitempty"`
}

// Validate fills defaults, resolves paths and checks every field.
func (c *Config) Validate() error {
	var err error

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DataDir, err = utils.ResolvePath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}

	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("%w: %s < %s", ErrPollTooShort, c.PollInterval, MinPollInterval)
	}

	if c.WindowSize == 0 {
		c.WindowSize = transfer.DefaultWindow
	}
	if c.WindowSize < transfer.MinWindow {
		return fmt.Errorf("%w: %d < %d", ErrWindowTooSmall, c.WindowSize, transfer.MinWindow)
	}

	if c.Workers < 1 {
		c.Workers = 1
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	seedrCfg := c.SeedrClientConfig()
	if err := seedrCfg.Validate(); err != nil {
		return err
	}
	if c.Seedr.BaseURL != "" {
		if err := validateURL(c.Seedr.BaseURL); err != nil {
			return fmt.Errorf("seedr base_url: %w", err)
		}
	}

	if c.Jellyfin.URL != "" {
		if err := validateURL(c.Jellyfin.URL); err != nil {
			return fmt.Errorf("jellyfin url: %w", err)
		}
		if c.Jellyfin.APIKey == "" {
			return ErrJellyfinAPIKey
		}
	}

	if c.Registry.Backend == "" {
		c.Registry.Backend = registry.BackendFile
	}
	switch c.Registry.Backend {
	case registry.BackendFile, registry.BackendSQLite:
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Registry.Backend)
	}
	if c.Registry.Path != "" {
		if c.Registry.Path, err = utils.ResolvePath(c.Registry.Path); err != nil {
			return fmt.Errorf("registry path: %w", err)
		}
	}

	if err := bridge.ValidatePatterns(c.Exclude); err != nil {
		return err
	}
	if _, _, err := c.FreeSpaceReserve(); err != nil {
		return err
	}

	return c.validateRoots()
}

func (c *Config) validateRoots() error {
	if len(c.Roots) == 0 {
		return ErrNoRoots
	}

	seen := make(map[string]struct{}, len(c.Roots))
	for i := range c.Roots {
		r := &c.Roots[i]

		selectors := 0
		for _, v := range []string{r.Prefix, r.FolderID, r.FolderName} {
			if strings.TrimSpace(v) != "" {
				selectors++
			}
		}
		if selectors != 1 {
			return fmt.Errorf("roots[%d]: %w", i, ErrRootSelector)
		}

		if r.Name == "" {
			r.Name = strings.ToLower(strings.TrimSpace(r.Prefix + r.FolderName + r.FolderID))
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("roots[%d]: %w %q", i, ErrDuplicateRoot, r.Name)
		}
		seen[r.Name] = struct{}{}

		if r.BasePath == "" {
			return fmt.Errorf("roots[%d] %s: %w", i, r.Name, ErrNoBasePath)
		}
		base, err := utils.ResolvePath(r.BasePath)
		if err != nil {
			return fmt.Errorf("roots[%d] %s: base_path: %w", i, r.Name, err)
		}
		r.BasePath = base
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return level, nil
}

func (c *Config) SeedrClientConfig() *seedr.Config {
	return &seedr.Config{
		BaseURL:    c.Seedr.BaseURL,
		Username:   c.Seedr.Username,
		Password:   c.Seedr.Password,
		RetryCount: seedr.DefaultRetryCount,
	}
}

func (c *Config) BridgeRoots() []bridge.Root {
	roots := make([]bridge.Root, 0, len(c.Roots))
	for _, r := range c.Roots {
		roots = append(roots, bridge.Root{
			Name:       r.Name,
			Prefix:     strings.TrimSpace(r.Prefix),
			FolderID:   strings.TrimSpace(r.FolderID),
			FolderName: r.FolderName,
			BasePath:   r.BasePath,
			DeleteRoot: r.DeleteRoot,
		})
	}
	return roots
}

// FreeSpaceReserve parses min_free_space ("10GiB", "500 MB"). An empty value
// disables the check.
func (c *Config) FreeSpaceReserve() (uint64, bool, error) {
	if c.MinFreeSpace == "" {
		return 0, false, nil
	}
	n, err := humanize.ParseBytes(c.MinFreeSpace)
	if err != nil {
		return 0, false, fmt.Errorf("%w %q: %w", ErrMinFreeSpace, c.MinFreeSpace, err)
	}
	return n, true, nil
}

func (c *Config) LogFilePath() string {
	return filepath.Join(c.DataDir, logsDir, DefaultLogFileName)
}

// LogValue keeps credentials out of the logs.
func (c *Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("path", c.Path),
		slog.String("data_dir", c.DataDir),
		slog.Duration("poll_interval", c.PollInterval),
		slog.Int64("window_size", c.WindowSize),
		slog.Int("workers", c.Workers),
		slog.String("seedr_user", c.Seedr.Username),
		slog.String("seedr_password", utils.MaskSecret(c.Seedr.Password)),
		slog.String("registry", c.Registry.Backend),
		slog.Int("roots", len(c.Roots)),
	}
	if c.Jellyfin.URL != "" {
		attrs = append(attrs,
			slog.String("jellyfin", c.Jellyfin.URL),
			slog.String("jellyfin_key", utils.MaskSecret(c.Jellyfin.APIKey)),
		)
	}
	return slog.GroupValue(attrs...)
}

// MarshalYAML writes the poll interval in its human form.
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	return struct {
		plain        `yaml:",inline"`
		PollInterval string `yaml:"poll_interval"`
	}{plain(c), c.PollInterval.String()}, nil
}

// Save writes the config as YAML, readable only by the owner since it holds
// credentials.
func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
