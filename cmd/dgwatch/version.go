package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/dgwatch"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dgwatch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dgwatch version %s\n", strings.TrimSpace(dgwatch.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
