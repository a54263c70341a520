package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderag/internal/metricsserver"
	"github.com/sevigo/coderag/internal/wire"
)

var metricsAddr string

var metricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve the telemetry sink's Prometheus metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		logger := slog.Default()
		srv := metricsserver.New(metricsAddr, application.Telemetry, logger)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-quit:
			fmt.Println("shutting down metrics server")
			return srv.Stop()
		}
	},
}

func init() { //nolint:gochecknoinits // cobra flag registration
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9090", "address to serve /metrics and /health on")
}
