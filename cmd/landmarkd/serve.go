package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/landmarks/httpapi"
	"github.com/jonwraymond/landmarks/observe"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				_ = a.close(context.WithoutCancel(ctx))
				return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
			}
			return serve(ctx, a, lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the sweeper and HTTP server on lis until ctx is done, then
// shuts down in order: HTTP (bounded by the grace period), sweeper, store,
// telemetry.
func serve(ctx context.Context, a *app, lis net.Listener) error {
	cfg := a.cfg

	var metrics http.Handler
	if cfg.Telemetry.Metrics == "prometheus" {
		metrics = promhttp.Handler()
	}
	var role string
	authn := cfg.Authenticator()
	if authn != nil {
		role = cfg.Admin.RequiredRole
	}

	srv := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Config{
			Resolver:       a.pipeline,
			Cache:          a.store,
			Sweeper:        a.sweeper,
			Health:         a.health(),
			Metrics:        metrics,
			Auth:           authn,
			RequiredRole:   role,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSOrigins:    cfg.Server.CORSOrigins,
			Logger:         a.logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweeper.Run(sweepCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(lis)
	}()

	a.logger.Info(ctx, "landmarkd listening",
		observe.F("addr", lis.Addr().String()),
		observe.F("backend", cfg.Cache.Backend),
		observe.F("admin_auth", authn != nil),
		observe.F("version", version))

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownGrace)
	defer cancel()

	a.logger.Info(shutdownCtx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("http shutdown: %w", err))
	}
	stopSweep()
	wg.Wait()

	if err := a.close(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
