package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/mediabridge/mediabridge/internal/bridge"
	"github.com/mediabridge/mediabridge/internal/daemon"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass over the configured roots and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			roots, err := selectRoots(cfg.BridgeRoots(), only)
			if err != nil {
				return err
			}

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

			poller := daemon.NewPoller(a.sync, roots, cfg.PollInterval)
			result := poller.RunPass(cmd.Context())
			printReports(cmd.OutOrStdout(), poller.Status().Snapshot().Roots)
			return result.Err()
		},
	}

	cmd.Flags().StringSliceVarP(&only, "root", "r", nil, "sync only these roots (by name)")
	return cmd
}

func selectRoots(roots []bridge.Root, only []string) ([]bridge.Root, error) {
	if len(only) == 0 {
		return roots, nil
	}

	selected := make([]bridge.Root, 0, len(only))
	for _, name := range only {
		i := slices.IndexFunc(roots, func(r bridge.Root) bool { return r.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown root %q", name)
		}
		selected = append(selected, roots[i])
	}
	return selected, nil
}

func printReports(w io.Writer, reports []*bridge.Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "%s: downloaded %d (%s), deleted %d, skipped %d, excluded %d in %s\n",
			r.Root,
			r.FilesDownloaded,
			humanize.IBytes(uint64(r.BytesDownloaded)),
			r.FoldersDeleted,
			r.FoldersSkipped+r.FilesSkipped,
			r.FilesExcluded,
			r.Duration,
		)
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		if r.NotifyError != "" {
			fmt.Fprintf(w, "  refresh: %s\n", r.NotifyError)
		}
	}
}
