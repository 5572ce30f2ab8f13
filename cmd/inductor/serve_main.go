package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/metrorun/inductor/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the induction HTTP service",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Override the configured listen address")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	serverCfg := d.cfg.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		serverCfg.Addr = addr
	}

	checks := map[string]httpapi.HealthCheck{}
	if d.dbMgr != nil {
		checks["postgres"] = d.dbMgr.Health
	}
	if d.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.redis.Ping(ctx).Err()
		}
	}

	metrics := httpapi.NewMetricsRegistry()
	handlers := httpapi.NewHandlers(d.planner, metrics, checks)
	server := httpapi.NewServer(serverCfg, handlers, metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
