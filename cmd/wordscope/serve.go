package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	wsflight "github.com/23skdu/wordscope/internal/flight"
	"github.com/23skdu/wordscope/internal/health"
	"github.com/23skdu/wordscope/internal/limiter"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over Arrow Flight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				app.Config.ListenAddr, _ = cmd.Flags().GetString("listen")
			}
			if cmd.Flags().Changed("metrics") {
				app.Config.MetricsAddr, _ = cmd.Flags().GetString("metrics")
			}

			lis, err := net.Listen("tcp", app.Config.ListenAddr)
			if err != nil {
				return err
			}
			return runServer(ctx, app, lis)
		},
	}
	cmd.Flags().String("listen", "", "Flight listen address (overrides WORDSCOPE_LISTEN_ADDR)")
	cmd.Flags().String("metrics", "", "Metrics listen address (overrides WORDSCOPE_METRICS_ADDR)")
	return cmd
}

// runServer serves Flight on lis and Prometheus metrics on the configured
// address until ctx is cancelled, then drains both.
func runServer(ctx context.Context, app *App, lis net.Listener) error {
	logger := app.Logger
	rl := limiter.NewRateLimiter(app.Config.Config, logger)

	opts := app.Config.BuildGRPCServerOptions()
	opts = append(opts, rl.ServerOptions()...)
	grpcServer := grpc.NewServer(opts...)
	flight.RegisterFlightServiceServer(grpcServer, wsflight.NewServer(app.Engine, app.Cached, logger))
	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	checks := health.NewManager(version, logger,
		health.NewEngineChecker(app.Engine),
		health.NewCacheChecker(app.Cached),
	)
	serving := healthpb.HealthCheckResponse_SERVING
	if checks.CheckHealth(ctx).Status == health.StatusUnhealthy {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	healthServer.SetServingStatus("", serving)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checks.HTTPHandler())
	metricsServer := &http.Server{
		Addr:              app.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", lis.Addr().String()).Bool("rate_limited", rl.Enabled()).Msg("Flight server starting")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info().Str("address", metricsServer.Addr).Msg("Starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}
