package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"article-api/backend/pkg/health"
	"article-api/backend/pkg/router"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the gRPC health service when GRPC_PORT is set)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	container, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	log := container.Logger
	cfg := container.Config

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			log.LogError(err, "error releasing resources")
		}
	}()

	if err := container.Migrate(); err != nil {
		return err
	}

	r := router.New(container)
	r.SetupRoutes()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	background := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(runCtx)
		}()
	}
	background(container.RateLimits.Run)
	background(container.Health.Start)
	background(container.Hub.Run)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr, "base_url", cfg.Server.BaseURL, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcServer *health.GRPCServer
	if cfg.Server.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			return err
		}
		grpcServer = health.NewGRPCServer(container.Health)
		go func() {
			log.Info("gRPC health server starting", "addr", lis.Addr().String())
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err = <-errCh:
		log.LogError(err, "server failed")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.LogError(shutdownErr, "Server forced to shutdown")
	}
	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}

	cancel()
	wg.Wait()

	log.Info("Server exited gracefully")
	return err
}
