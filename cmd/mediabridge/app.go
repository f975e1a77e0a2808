package main

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/mediabridge/mediabridge/internal/bridge"
	"github.com/mediabridge/mediabridge/internal/config"
	"github.com/mediabridge/mediabridge/internal/jellyfin"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/mediabridge/mediabridge/internal/seedr"
	"github.com/mediabridge/mediabridge/internal/transfer"
	gobreaker "github.com/sony/gobreaker/v2"
)

// app wires the sync engine from a validated config.
type app struct {
	registry *registry.Registry
	sync     *bridge.Synchronizer
}

func newApp(cfg *config.Config) (*app, error) {
	reg, err := registry.Open(cfg.Registry.Backend, cfg.Registry.Path, cfg.DataDir)
	if err != nil {
		return nil, err
	}

	dlOpts, err := downloaderOptions(cfg)
	if err != nil {
		reg.Close()
		return nil, err
	}
	store := seedr.NewStore(seedr.New(cfg.SeedrClientConfig()))
	dl := transfer.New(store, dlOpts...)

	sync := bridge.New(store, reg, dl, newNotifier(cfg),
		bridge.WithWorkers(cfg.Workers),
		bridge.WithExclude(cfg.Exclude...),
	)

	return &app{registry: reg, sync: sync}, nil
}

func downloaderOptions(cfg *config.Config) ([]transfer.Option, error) {
	opts := []transfer.Option{
		transfer.WithWindow(cfg.WindowSize),
		transfer.WithProgress(logProgress),
	}
	reserve, ok, err := cfg.FreeSpaceReserve()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, transfer.WithDiskCheck(reserve))
	}
	return opts, nil
}

func (a *app) Close() error {
	return a.registry.Close()
}

func newNotifier(cfg *config.Config) bridge.Notifier {
	if cfg.Jellyfin.URL == "" {
		slog.Info("no jellyfin configured, library refresh disabled")
		return jellyfin.Noop{}
	}

	breakerCfg := jellyfin.DefaultBreakerConfig()
	breakerCfg.OnStateChange = func(_, to gobreaker.State) {
		metrics.NotifierBreakerState.Set(float64(to))
	}
	return jellyfin.NewBreaker(jellyfin.New(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey), breakerCfg)
}

func logProgress(fileID string, done, total int64) {
	slog.Debug("transfer progress", "file", fileID, "done", humanize.IBytes(uint64(done)), "total", humanize.IBytes(uint64(total)))
}
