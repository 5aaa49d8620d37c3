package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/di"
	"admin-dashboard/backend/pkg/health"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/observability"
	"admin-dashboard/backend/pkg/router"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.GetGlobal().LogError(err, "Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.LogError(err, "Server exited with error")
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting application", "env", cfg.Server.Env, "db_engine", cfg.Database.Engine)

	db, err := config.NewDB(cfg, log)
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return err
	}

	if cfg.Observability.Tracing {
		shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, os.Stdout)
		if err != nil {
			return err
		}
		defer shutdownTracing(context.Background())
	}

	container, err := di.New(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer container.Close()

	r := router.New(container)
	r.SetupRoutes()

	// Run every job once so /health is accurate before the first tick.
	container.Scheduler.RunAll()
	container.Scheduler.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.GRPC.Enabled {
		grpcServer := health.NewGRPCServer(":"+cfg.GRPC.Port, container.Health, log)
		g.Go(func() error { return grpcServer.Serve(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := container.Scheduler.Stop(shutdownCtx); err != nil {
			log.LogError(err, "Scheduler did not stop in time")
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
