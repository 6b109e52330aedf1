// Package main implements the sizes server and its command-line counterpart.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sizes/internal/config"
	"sizes/internal/metrics"
	"sizes/internal/webserver"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "sizes",
		Short: "Count words and measure compressed sizes of text and files",
		Long: `sizes counts bytes, characters, words and lines of text and files,
estimates reading time, and measures how large they become under brotli,
gzip and deflate.

Run "sizes serve" for the web form and JSON API, or use the wc and sizes
commands to analyze local files.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newWCCmd(&configPath),
		newSizesCmd(&configPath),
	)

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server with the web form, the /api/wc and /api/sizes
endpoints, theme preferences, health checks and Prometheus metrics.

Examples:
  # Listen on the configured port (8080 by default)
  sizes serve

  # Override the port
  sizes serve --port 9000

  # Use a config file and JSON logs
  SIZES_LOG_FORMAT=json sizes serve --config sizes.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port

				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides config)")

	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func serve(ctx context.Context, cfg *config.Config) error {
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	srv, err := webserver.NewServer(cfg, metrics.New())
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("Server started", "addr", cfg.Addr())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server startup error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
