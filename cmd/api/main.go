package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"partdocs/internal/config"
	"partdocs/internal/database"
	"partdocs/internal/database/migration"
	handlers "partdocs/internal/http/handler"
	"partdocs/internal/http/middleware"
	"partdocs/internal/logger"
	"partdocs/internal/otel"
	"partdocs/internal/reconcile"
	"partdocs/internal/repository/postgres"
	"partdocs/internal/service"
	"partdocs/internal/storage"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

// @title Part Document API
// @version 1.0
// @description Stores one document per part number and hands out pre-signed download links.
// @BasePath /
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Location())
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	if err := migration.EnsureMigrated(startCtx, db, log, database.HostOf(cfg.Database)); err != nil {
		cancel()
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	objStore, err := storage.New(startCtx, cfg.Storage)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	docRepo := postgres.NewDocumentPostgres(db)
	docSvc := service.NewDocumentService(objStore, docRepo, service.Options{
		DBTimeout:      config.Seconds(cfg.Database.QueryTimeoutSec),
		StorageTimeout: config.Seconds(cfg.Storage.TimeoutSec),
		LinkTTL:        config.Seconds(cfg.Storage.DownloadTTLSec),
		Logger:         log,
	})

	if cfg.Reconcile.Enabled {
		sweeper, err := reconcile.NewSweeper(docRepo, objStore, reconcile.Options{
			Interval:   config.Seconds(cfg.Reconcile.IntervalSec),
			StaleAfter: config.Seconds(cfg.Reconcile.StaleAfterSec),
			BatchSize:  cfg.Reconcile.BatchSize,
			Logger:     log,
		}, reg)
		if err != nil {
			log.Fatal("failed to initialize reconcile sweeper", zap.Error(err))
		}
		go sweeper.Run(ctx)
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	app := handlers.NewApp()

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())
	app.Use(middleware.CORS())
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, docSvc, log)
	handlers.RegisterSwagger(app, cfg.AppHost)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening",
			zap.String("addr", addr),
			zap.String("storage_driver", cfg.Storage.Driver),
			zap.String("bucket", cfg.Storage.Bucket()),
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server_failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		log.Warn("server_shutdown_failed", zap.Error(err))
	}
	log.Info("server_stopped")
}
