package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jmcleod/jobboard/gateway"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over a local HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				opts.cfg.Listen = listen
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			a, err := openApp(cmd.Context(), opts, reg)
			if err != nil {
				return err
			}
			defer a.Close()

			g := gateway.New(a.client, gateway.WithLogger(opts.logger), gateway.WithRegistry(reg))

			r := chi.NewRouter()
			r.Use(middleware.Heartbeat("/health"))
			r.Mount("/", g.Router())

			server := &http.Server{
				Addr:              opts.cfg.Listen,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      opts.cfg.RequestTimeout + opts.cfg.RefreshTimeout + 5*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			done := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("server failed: %w", err)
					return
				}
				done <- nil
			}()

			printBanner(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "Serving session for %s on http://%s (docs at /docs)\n", opts.cfg.APIURL, opts.cfg.Listen)
			opts.logger.Info("gateway started", "listen", opts.cfg.Listen, "api_url", opts.cfg.APIURL, "store", opts.cfg.Store)

			select {
			case <-cmd.Context().Done():
				fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-done:
				return err
			}
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config)")
	return cmd
}
