package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/procmeta"
	"github.com/aretw0/procmeta/internal/presentation/tui"
	httpAdapter "github.com/aretw0/procmeta/pkg/adapters/http"
	"github.com/aretw0/procmeta/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST backend",
	Long:  `Serves the process catalog over the /api/v1 JSON API, with /metrics, /swagger and /events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("catalog") {
			cfg.Server.Catalog, _ = cmd.Flags().GetString("catalog")
		}

		catalog, closer, err := openCatalog(cfg.Server)
		if err != nil {
			return err
		}
		defer closer.Close()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if noMetrics, _ := cmd.Flags().GetBool("no-metrics"); !noMetrics {
			opts = append(opts, httpAdapter.WithMetrics(observability.NewMetrics()))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpAdapter.NewHandler(catalog, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, procmeta.Version)
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("procmeta server listening", "addr", srv.Addr, "catalog", cfg.Server.Catalog)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("procmeta server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8000)")
	serveCmd.Flags().String("catalog", "", "Catalog backend: memory, sqlite or postgres")
	serveCmd.Flags().Bool("no-metrics", false, "Do not expose /metrics")
}
