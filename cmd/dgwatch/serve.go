package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/dgwatch/internal/cli"
	"github.com/aretw0/dgwatch/internal/presentation/tui"
	httpAdapter "github.com/aretw0/dgwatch/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scene over HTTP",
	Long: `Loads the scene once and keeps it live behind a JSON API. Every mutation is saved,
observer events are streamed at /events and Prometheus metrics are exposed at /metrics.
Undo and redo history lasts as long as the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		quiet, _ := cmd.Flags().GetBool("quiet")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		streams := httpAdapter.NewStreamManager()
		opts := sessionOptions(cmd)
		opts.Hooks = streams.Hooks()

		s, err := cli.Open(sc, opts)
		if err != nil {
			fmt.Printf("Error opening scene: %v\n", err)
			os.Exit(1)
		}
		defer s.Close(context.Background())

		if addr == "" {
			addr = s.Config.Server.Addr
		}

		server := httpAdapter.NewServer(s.Plugin, s.Graph,
			httpAdapter.WithSceneName(s.Name),
			httpAdapter.WithPersist(s.Persist),
			httpAdapter.WithMetrics(s.Metrics.Handler()),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithLogger(s.Logger),
		)

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			// Event streams end when the signal arrives instead of holding Shutdown open.
			BaseContext: func(net.Listener) context.Context { return sc },
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			if !quiet {
				tui.PrintBanner(os.Stdout)
			}
			fmt.Printf("Starting dgwatch server on %s\n", srv.Addr)
			fmt.Printf("Serving scene: %s\n", s.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("Server error: %v\n", err)
				s.Close(context.Background())
				os.Exit(1)
			}

		case <-sc.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", sc.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("dgwatch server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
	serveCmd.Flags().Bool("quiet", false, "Do not print the banner")
}
