package main

import (
	"context"
	"net/http"
	"os"
	osignal "os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpserver "github.com/driftcast/driftcast/internal/interfaces/http"
)

// runMonitor serves /health, /metrics, /version until interrupted.
func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	serverCfg := httpserver.DefaultServerConfig()
	serverCfg.Host = cfg.Monitor.Host
	serverCfg.Port = cfg.Monitor.Port
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		serverCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serverCfg.Port = port
	}

	server := httpserver.NewServer(serverCfg, httpserver.NewMetricsRegistry(), version)

	ctx, stop := osignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown incomplete")
		}
	}
	return nil
}
