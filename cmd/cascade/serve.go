package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/cache-cascade/pkg/logging"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var requestTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cascade HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			logger := logging.NewLogger("server")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := svc.Ping(pingCtx); err != nil {
				// the cascade degrades to fast tier plus backend without Redis
				logger.Warn().Err(err).Str("redis_url", cfg.Redis.URL).Msg("Shared tier not reachable at startup")
			} else {
				logger.Info().Str("redis_url", cfg.Redis.URL).Msg("Connected to shared tier")
			}
			cancel()

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           newServer(svc, cfg.Report.CostPerCall, requestTimeout).routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", cfg.Listen).
					Str("backend", cfg.Backend.URL).
					Str("namespace", svc.Namespace()).
					Msg("Starting cascade server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "deadline for a single predict request")

	return cmd
}
