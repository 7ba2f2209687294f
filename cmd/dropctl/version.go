package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags; "dev" outside a release build.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dropctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
