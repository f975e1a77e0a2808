package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediabridge/mediabridge/internal/bridge"
	"github.com/mediabridge/mediabridge/internal/config"
	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/mediabridge/mediabridge/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand_PrintsDetailedVersion(t *testing.T) {
	cmd := &cobra.Command{Use: "mediabridge"}
	cmd.AddCommand(newVersionCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, version.AppName+" "+version.Detailed(), strings.TrimSpace(out.String()))
}

func TestVersionCommand_Short(t *testing.T) {
	cmd := &cobra.Command{Use: "mediabridge"}
	cmd.AddCommand(newVersionCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, version.AppName+" "+version.Short(), strings.TrimSpace(out.String()))
}

func TestSelectRoots(t *testing.T) {
	roots := []bridge.Root{{Name: "movies"}, {Name: "series"}}

	all, err := selectRoots(roots, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := selectRoots(roots, []string{"series"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "series", one[0].Name)

	_, err = selectRoots(roots, []string{"music"})
	assert.ErrorContains(t, err, "music")
}

func TestPrintReports(t *testing.T) {
	var out bytes.Buffer
	printReports(&out, []*bridge.Report{
		{Root: "movies", FilesDownloaded: 2, BytesDownloaded: 3 << 20, FoldersDeleted: 1, Duration: "1.5s"},
		{Root: "series", Error: "seedr: list root: 503", NotifyError: "jellyfin down"},
	})

	got := out.String()
	assert.Contains(t, got, "movies: downloaded 2 (3.0 MiB), deleted 1, skipped 0, excluded 0 in 1.5s")
	assert.Contains(t, got, "  error: seedr: list root: 503")
	assert.Contains(t, got, "  refresh: jellyfin down")
}

func TestRegistryOutput(t *testing.T) {
	reg, err := registry.New(registry.NewFileStore(filepath.Join(t.TempDir(), registry.DefaultFileName)))
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessed("42", "2026-01-02 10:00:00"))

	var out bytes.Buffer
	require.NoError(t, listKeys(&out, reg))
	assert.Equal(t, "42\t2026-01-02 10:00:00\n1 entries\n", out.String())

	out.Reset()
	require.NoError(t, checkKey(&out, reg, "42", "2026-01-02 10:00:00"))
	assert.Contains(t, out.String(), ": processed")

	out.Reset()
	require.NoError(t, checkKey(&out, reg, "42", "later"))
	assert.Contains(t, out.String(), "not processed")
}

func TestInitCommand_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cmd := &cobra.Command{Use: "mediabridge"}
	cmd.PersistentFlags().StringP("config", "c", "", "")
	cmd.AddCommand(newInitCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"init", "--config", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	v := viper.New()
	require.NoError(t, config.ReadInConfig(v, path))
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Len(t, cfg.Roots, 2)
	assert.Equal(t, config.DefaultPollInterval, cfg.PollInterval)

	cmd.SetArgs([]string{"init", "--config", path})
	assert.Error(t, cmd.Execute())

	cmd.SetArgs([]string{"init", "--config", path, "--force"})
	assert.NoError(t, cmd.Execute())
}

func TestDownloaderOptions(t *testing.T) {
	cfg := &config.Config{WindowSize: 1 << 20}
	opts, err := downloaderOptions(cfg)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	cfg.MinFreeSpace = "1GiB"
	opts, err = downloaderOptions(cfg)
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	cfg.MinFreeSpace = "plenty"
	_, err = downloaderOptions(cfg)
	require.ErrorIs(t, err, config.ErrMinFreeSpace)
}
