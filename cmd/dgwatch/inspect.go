package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the scene nodes and live subscriptions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := openSession(ctx, cmd)
		defer s.Close(ctx)

		report := tui.Report(s.Snapshot(), s.Plugin.Registry().Subscriptions())
		out, err := tui.NewRenderer(os.Stdout)(report)
		if err != nil {
			out = report
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
