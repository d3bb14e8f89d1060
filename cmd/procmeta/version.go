package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/procmeta"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of procmeta",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "procmeta version %s\n", strings.TrimSpace(procmeta.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
