package main

import (
	"fmt"
	"strings"

	"github.com/phanxgames/fluid"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fluid",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fluid version %s\n", strings.TrimSpace(fluid.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
