package main

import (
	"context"
	"fmt"

	"github.com/aretw0/dgwatch/internal/presentation/graph"
	httpAdapter "github.com/aretw0/dgwatch/pkg/adapters/http"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the scene graph visualization",
	Long:  `Loads the scene and outputs a Mermaid diagram (graph LR) with watched and selected nodes highlighted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		s := openSession(ctx, cmd)
		defer s.Close(ctx)

		scene := s.Snapshot()
		overlay := httpAdapter.Overlay(scene, s.Plugin.Registry().Subscriptions())
		fmt.Print(graph.GenerateMermaid(scene, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
