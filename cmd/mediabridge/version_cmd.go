package main

import (
	"fmt"

	"github.com/mediabridge/mediabridge/internal/version"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print mediabridge version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := version.Detailed()
			if short {
				v = version.Short()
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.AppName, v)
			return err
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only version and revision")
	return cmd
}
