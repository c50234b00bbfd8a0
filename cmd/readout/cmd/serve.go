package cmd

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

	"github.com/MeKo-Tech/readout/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the extraction HTTP/WebSocket server",
	Long: `Start an HTTP server that runs extractions over WebSocket.

The server provides the following endpoints:
  GET /health     - Health check endpoint
  GET /version    - Build information
  GET /metrics    - Prometheus metrics
  GET /ws/extract - WebSocket extraction: send one JSON request, receive
                    start/frame/complete events as the run progresses

Examples:
  readout serve
  readout serve --port 8080
  readout serve --host 0.0.0.0 --port 3000`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		// Extract server configuration with CLI flag overrides
		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}

		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		maxExtractions := cfg.Server.MaxExtractions
		if cmd.Flags().Changed("max-extractions") {
			maxExtractions, _ = cmd.Flags().GetInt("max-extractions")
		}

		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		engine, neural, err := buildEngine(cfg, backendsAll, cfg.Fusion.FastThreshold)
		if err != nil {
			return fmt.Errorf("failed to initialize extraction engine: %w", err)
		}
		if neural != nil {
			defer func() { _ = neural.Close() }()
		}

		srv := server.New(engine, server.Config{
			Host:           host,
			Port:           port,
			CORSOrigin:     corsOrigin,
			TimeoutSec:     timeout,
			MaxExtractions: maxExtractions,
			FPSSample:      cfg.Video.FPSSample,
			Workers:        cfg.Fusion.Workers,
		})

		mux := http.NewServeMux()
		srv.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			slog.Info("Starting extraction server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}

		slog.Info("Graceful shutdown completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("timeout", 60, "WebSocket read timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("max-extractions", server.DefaultMaxExtractions, "maximum concurrent extraction runs")
}
