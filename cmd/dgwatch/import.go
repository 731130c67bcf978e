package main

import (
	"context"
	"os"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/aretw0/dgwatch/pkg/adapters/gltf"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.gltf|file.glb>",
	Short: "Create a scene from a glTF file",
	Long: `Converts glTF nodes into transforms. Node extras may carry dg_type, dg_selected,
dg_visible and dg_callback to describe dependency nodes, selection and existing wiring.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)

		scene, err := gltf.Import(args[0])
		if err != nil {
			status.Failure("%v", err)
			os.Exit(1)
		}

		opts := sessionOptions(cmd)
		if opts.Name == "" {
			opts.Name = scene.Name
		}
		s, err := cli.Create(ctx, opts, scene)
		if err != nil {
			status.Failure("%v", err)
			os.Exit(1)
		}
		name, subs := s.Name, s.Plugin.Registry().Len()
		saveOrExit(ctx, s)

		status.Success("imported %d nodes into scene %s", len(scene.Nodes), name)
		if subs > 0 {
			status.Info("%d observer subscriptions re-armed", subs)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
