package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpiface "github.com/edgerank/edgerank/internal/interfaces/http"
)

func runMonitor(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	metrics := httpiface.NewMetricsRegistry()
	server := httpiface.NewServer(addr, metrics, log.Logger)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down monitoring server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
