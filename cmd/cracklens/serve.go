package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/cracklens/internal/cli"
	httpAdapter "github.com/aretw0/cracklens/pkg/adapters/http"
	"github.com/aretw0/cracklens/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the engine behind a JSON API over HTTP, with prometheus metrics on
/metrics and plan events streamed on /events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector := observability.NewCollector(reg)
		streams := httpAdapter.NewStreamManager()

		a, err := loadApp(sigCtx, cmd, nil, collector.Hooks(), streams.Hooks())
		if err != nil {
			return err
		}
		defer a.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = a.cfg.Addr
		}

		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(a.engine,
				httpAdapter.WithStreams(streams),
				httpAdapter.WithMetricsHandler(collector.Handler()),
				httpAdapter.WithLogger(a.logger),
			),
		}

		g, ctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Serving on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.OutOrStdout(), "Server stopped gracefully (%v)", sigCtx.Signal())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
