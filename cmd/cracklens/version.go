package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/cracklens"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cracklens",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cracklens version %s\n", strings.TrimSpace(cracklens.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
