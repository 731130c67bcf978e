package main

import (
	"context"
	"os"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a scene with a single selected transform",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)
		transform, _ := cmd.Flags().GetString("transform")

		scene := domain.NewScene("")
		scene.Nodes = append(scene.Nodes, domain.NodeSpec{Name: transform, Type: domain.NodeTypeTransform})
		scene.Selection = []string{transform}

		s, err := cli.Create(ctx, sessionOptions(cmd), scene)
		if err != nil {
			status.Failure("%v", err)
			os.Exit(1)
		}
		name := s.Name
		saveOrExit(ctx, s)
		status.Success("created scene %s with %s selected", name, transform)
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().String("transform", "pCube1", "Name of the transform to create")
}
