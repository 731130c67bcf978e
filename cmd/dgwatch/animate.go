package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var animateCmd = &cobra.Command{
	Use:   "animate <node>",
	Short: "Tween translateX of a transform and print the reaction per frame",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		status := tui.NewStatus(os.Stdout)
		from, _ := cmd.Flags().GetFloat64("from")
		to, _ := cmd.Flags().GetFloat64("to")
		frames, _ := cmd.Flags().GetInt("frames")
		easeName, _ := cmd.Flags().GetString("ease")

		easing, err := cli.Easing(easeName)
		if err != nil {
			status.Failure("%v", err)
			os.Exit(1)
		}

		s := openSession(ctx, cmd)
		ref, err := s.Lookup(args[0])
		if err != nil {
			s.Close(ctx)
			status.Failure("%v", err)
			os.Exit(1)
		}

		err = cli.Animate(s.Graph, ref, from, to, frames, easing, func(f cli.Frame) {
			fmt.Printf("%4d  (%.4f, %.4f, %.4f)\n", f.Index, f.X, f.Y, f.Z)
		})
		if err != nil {
			s.Close(ctx)
			status.Failure("%v", err)
			os.Exit(1)
		}

		saveOrExit(ctx, s)
		status.Success("animated %s over %d frames", ref.Name, frames)
	},
}

func init() {
	rootCmd.AddCommand(animateCmd)
	animateCmd.Flags().Float64("from", 0, "Start value of translateX")
	animateCmd.Flags().Float64("to", 6.283185, "End value of translateX")
	animateCmd.Flags().Int("frames", 24, "Number of frames")
	animateCmd.Flags().String("ease", "linear", fmt.Sprintf("Easing function %v", cli.EasingNames()))
}
