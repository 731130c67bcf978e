package main

import (
	"context"
	"errors"
	"os"

	"github.com/aretw0/dgwatch"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/aretw0/dgwatch/pkg/domain"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Install the callback node on the selected transform",
	Long: `Runs the installer command on the scene. Without -n the scene selection is used.
Exactly one transform must be selected and the scene must not already hold a callback node.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)
		nodes, _ := cmd.Flags().GetStringArray("node")

		s := openSession(ctx, cmd)

		selection := s.Graph.Selection()
		if len(nodes) > 0 {
			selection = nil
			for _, name := range nodes {
				ref, err := s.Lookup(name)
				if err != nil {
					s.Close(ctx)
					status.Failure("%v", err)
					os.Exit(1)
				}
				selection = append(selection, ref)
			}
		}

		result, err := s.Plugin.Apply(dgwatch.Args{Selection: selection})
		if err != nil {
			s.Close(ctx)
			status.Failure("%v", err)
			if errors.Is(err, domain.ErrInvalidSelection) {
				status.Info("select exactly one transform, e.g. `dgwatch apply -n pCube1`")
			}
			os.Exit(1)
		}

		saveOrExit(ctx, s)
		status.Success("installed %s on %s", result.Node.Name, result.Target.Name)
		for _, step := range result.Steps {
			status.Info("%s", step)
		}
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringArrayP("node", "n", nil, "Transform to watch (repeatable; exactly one is accepted)")
}
