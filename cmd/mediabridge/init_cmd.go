package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mediabridge/mediabridge/internal/config"
	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/mediabridge/mediabridge/internal/seedr"
	"github.com/mediabridge/mediabridge/internal/transfer"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultConfigPath
			}
			return writeStarterConfig(cmd, path, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

func writeStarterConfig(cmd *cobra.Command, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := starterConfig()
	if err := cfg.Save(path); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "config written to %s, fill in your credentials\n", path)
	return err
}

func starterConfig() *config.Config {
	return &config.Config{
		DataDir:      config.DefaultDataDir,
		PollInterval: config.DefaultPollInterval,
		WindowSize:   transfer.DefaultWindow,
		Workers:      1,
		LogLevel:     "info",
		Exclude:      []string{"**/*.txt", "**/RARBG*"},
		Seedr: config.SeedrConfig{
			BaseURL:  seedr.DefaultBaseURL,
			Username: "you@example.com",
			Password: "changeme",
		},
		Jellyfin: config.JellyfinConfig{
			URL:    "http://localhost:8096",
			APIKey: "changeme",
		},
		Registry: config.RegistryConfig{Backend: registry.BackendFile},
		Roots: []config.Root{
			{Name: "movies", Prefix: "Movies", BasePath: "/media/movies"},
			{Name: "series", Prefix: "Series", BasePath: "/media/series"},
		},
	}
}
