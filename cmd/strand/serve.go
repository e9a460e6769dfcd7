package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/strand/internal/config"
	"github.com/haasonsaas/strand/internal/observability"
	"github.com/haasonsaas/strand/internal/server"
	"github.com/haasonsaas/strand/internal/store"
)

func buildServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger := newLogger(cfg)
			metrics := observability.NewMetrics()

			tracer, shutdownTracer, err := observability.NewTracer(observability.TraceConfig{
				Endpoint:       cfg.Telemetry.OTLPEndpoint,
				ServiceVersion: version,
				SamplingRate:   cfg.Telemetry.SamplingRate,
			})
			if err != nil {
				return err
			}

			st, err := buildStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Health(cmd.Context()); err != nil {
				return fmt.Errorf("storage health: %w", err)
			}
			logger.Info(cmd.Context(), "storage ready", "backend", cfg.Storage.Backend)

			a, err := buildAgent(cfg, logger, metrics, tracer)
			if err != nil {
				return err
			}

			srv, err := server.New(a,
				server.WithAddr(cfg.Server.Addr()),
				server.WithLogger(logger),
				server.WithMetrics(metrics),
				server.WithVersion(version),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info(ctx, "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if shutdownTracer != nil {
				_ = shutdownTracer(shutdownCtx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config, 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config, 3000)")
	return cmd
}

// buildStore opens the configured storage backend. The sqlite backend
// places its database under storage.path, falling back to the data dir.
func buildStore(cfg *config.Config) (*store.Router, error) {
	if cfg.Storage.Backend != "sqlite" {
		return store.LocalDefault(), nil
	}
	dir := cfg.Storage.Path
	if dir == "" {
		dir = cfg.ExpandDataDir()
	}
	return store.LocalPersistent(dir)
}
