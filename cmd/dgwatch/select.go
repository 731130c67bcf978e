package main

import (
	"context"
	"os"
	"strings"

	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select [node...]",
	Short: "Replace the scene selection",
	Long:  `Selects the named nodes. With no arguments the selection is cleared.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)

		s := openSession(ctx, cmd)
		if err := s.Graph.Select(args...); err != nil {
			s.Close(ctx)
			status.Failure("%v", err)
			os.Exit(1)
		}
		saveOrExit(ctx, s)

		if len(args) == 0 {
			status.Success("selection cleared")
			return
		}
		status.Success("selected %s", strings.Join(args, ", "))
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
}
