package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediabridge/mediabridge/internal/config"
	"github.com/mediabridge/mediabridge/internal/daemon"
	"github.com/mediabridge/mediabridge/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mediabridge",
	Short: "Mirror a Seedr account into a Jellyfin library",
	Long: `mediabridge polls a Seedr account, downloads every folder under the
configured roots into local media directories, deletes the remote copy once
it is safely on disk, and asks Jellyfin to rescan.`,
	Version: version.Detailed(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return runDaemon(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default "+config.DefaultConfigPath+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("datadir", "d", config.DefaultDataDir, "data directory for registry and logs")
	rootCmd.Flags().DurationP("interval", "i", config.DefaultPollInterval, "delay between two sync passes")
	rootCmd.Flags().StringP("status-addr", "a", "", "serve /healthz, /v1/status and /metrics on this address")
}

func main() {
	slog.SetDefault(slog.New(newConsoleHandler(slog.LevelInfo)))

	if err := config.LoadDotEnv(config.DefaultDataDir); err != nil {
		slog.Warn("dotenv", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeLogging()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, binds the flags the command has and
// switches logging to the configured level and log file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.GetViper()

	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadInConfig(v, path); err != nil {
		return nil, err
	}

	for key, flag := range map[string]string{
		"data_dir":      "datadir",
		"poll_interval": "interval",
		"status_addr":   "status-addr",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	level, _ := cfg.SlogLevel()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	if err := setupLogging(cfg.LogFilePath(), level); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	slog.Info("mediabridge", "version", version.Version, "revision", version.Revision, "config", cfg)
	return cfg, nil
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	ws, err := daemon.NewWorkspace(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := ws.Setup(); err != nil {
		return err
	}
	defer ws.Unlock()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	poller := daemon.NewPoller(a.sync, cfg.BridgeRoots(), cfg.PollInterval)
	tree := daemon.NewTree(slog.Default(), daemon.TreeConfig{})
	tree.Add(poller)
	if cfg.StatusAddr != "" {
		tree.Add(daemon.NewStatusServer(cfg.StatusAddr, poller.Status()))
	}

	defer slog.Info("Bye!")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon", "error", err)
		return err
	}
	return nil
}
