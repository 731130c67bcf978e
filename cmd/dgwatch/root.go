package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dgwatch",
	Short: "dgwatch installs reactive observers on a dependency graph scene",
	Long: `dgwatch keeps a scene of transform nodes and installs a callback node that
watches a selected transform: every change to its translateX sets
translateY = sin(x) and translateZ = cos(z + x).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default dgwatch.yaml if present)")
	rootCmd.PersistentFlags().String("scene", "", "Scene directory or redis:// URL")
	rootCmd.PersistentFlags().String("name", "", "Scene name")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("teardown", "", "Teardown policy when the trigger is disconnected (all|target)")
}

func sessionOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	scene, _ := cmd.Flags().GetString("scene")
	name, _ := cmd.Flags().GetString("name")
	debug, _ := cmd.Flags().GetBool("debug")
	teardown, _ := cmd.Flags().GetString("teardown")
	return cli.Options{
		ConfigPath: configPath,
		Scene:      scene,
		Name:       name,
		Debug:      debug,
		Teardown:   teardown,
	}
}

// openSession loads the scene or exits.
func openSession(ctx context.Context, cmd *cobra.Command) *cli.Session {
	s, err := cli.Open(ctx, sessionOptions(cmd))
	if err != nil {
		tui.NewStatus(os.Stdout).Failure("%v", err)
		os.Exit(1)
	}
	return s
}

// saveOrExit writes the scene back and closes the session.
func saveOrExit(ctx context.Context, s *cli.Session) {
	err := s.Save(ctx)
	s.Close(ctx)
	if err != nil {
		tui.NewStatus(os.Stdout).Failure("%v", err)
		os.Exit(1)
	}
}
