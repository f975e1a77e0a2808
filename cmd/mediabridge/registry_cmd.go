package main

import (
	"fmt"
	"io"

	"github.com/mediabridge/mediabridge/internal/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRegistryCmd())
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the processing registry",
	}
	cmd.AddCommand(newRegistryListCmd(), newRegistryCheckCmd())
	return cmd
}

func newRegistryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every processed (id, last modified) pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()

			return listKeys(cmd.OutOrStdout(), reg)
		},
	}
}

func newRegistryCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <id> <last_modified>",
		Short: "Tell whether a folder version was processed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer reg.Close()

			return checkKey(cmd.OutOrStdout(), reg, args[0], args[1])
		},
	}
}

func openRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cmd.SilenceUsage = true
	return registry.Open(cfg.Registry.Backend, cfg.Registry.Path, cfg.DataDir)
}

func listKeys(w io.Writer, reg *registry.Registry) error {
	for _, k := range reg.Keys() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", k.ID, k.LastModified); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d entries\n", reg.Len())
	return err
}

func checkKey(w io.Writer, reg *registry.Registry, id, lastModified string) error {
	state := "not processed"
	if reg.IsProcessed(id, lastModified) {
		state = "processed"
	}
	_, err := fmt.Fprintf(w, "%s %s: %s\n", id, lastModified, state)
	return err
}
