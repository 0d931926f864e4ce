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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/handler"
	"github.com/noah-isme/fleet-service-api/internal/repository"
	"github.com/noah-isme/fleet-service-api/internal/router"
	"github.com/noah-isme/fleet-service-api/internal/service"
	"github.com/noah-isme/fleet-service-api/internal/store"
	"github.com/noah-isme/fleet-service-api/pkg/cache"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	"github.com/noah-isme/fleet-service-api/pkg/config"
	"github.com/noah-isme/fleet-service-api/pkg/database"
	"github.com/noah-isme/fleet-service-api/pkg/export"
	"github.com/noah-isme/fleet-service-api/pkg/jobs"
	"github.com/noah-isme/fleet-service-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().Bool("migrate", false, "Apply the schema before serving (postgres driver only)")
	return cmd
}

// redisPinger adapts the go-redis client to handler.Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	withMigrate, _ := cmd.Flags().GetBool("migrate")

	metrics := service.NewMetricsService()
	validate := validator.New()
	clk := clock.Real()
	checks := map[string]handler.Pinger{}

	var (
		st        store.Store
		activity  service.ActivityAppender
		inventory service.InventoryConsumer
		closers   []func() error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		ledger := store.NewMemoryLedger()
		st, activity, inventory = store.NewMemoryStore(), ledger, ledger
		logr.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, db.Close)
		if withMigrate {
			if err := database.Migrate(ctx, db, logr); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		st = repository.NewScheduleStore(db)
		activity = repository.NewActivityLogRepository(db)
		inventory = repository.NewInventoryRepository(db)
		checks["postgres"] = db
	}
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logr.Warn("close failed", zap.Error(err))
			}
		}
	}()

	var scheduleCache *service.ScheduleCache
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		cacheRepo := repository.NewCacheRepository(client, logr)
		closers = append(closers, cacheRepo.Close)
		checks["redis"] = redisPinger{client: client}
		scheduleCache = service.NewScheduleCache(cacheRepo, metrics, cfg.Scheduling.CacheTTL, logr)
	}

	dispatcher := service.NewIntentDispatcher(activity, inventory, service.NewLogNotifier(logr), metrics, logr)
	queue := jobs.NewQueue("intents", dispatcher.Handle, jobs.QueueConfig{
		Workers:    cfg.Dispatch.Workers,
		BufferSize: cfg.Dispatch.BufferSize,
		MaxRetries: cfg.Dispatch.MaxRetries,
		RetryDelay: cfg.Dispatch.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	dispatcher.Attach(queue)

	scheduler := service.NewScheduleService(st, service.ScheduleServiceOptions{
		Cache:   scheduleCache,
		Metrics: metrics,
		Sink:    dispatcher,
		Clock:   clk,
		Grid:    cfg.Scheduling.Grid,
		Logger:  logr,
	})
	lifecycle := service.NewLifecycleService(st, scheduler, scheduleCache, metrics, clk, validate, logr)
	requests := service.NewRequestService(st, dispatcher, clk, validate, logr)
	bulk := service.NewBulkService(lifecycle, metrics, validate, logr)
	exports := service.NewExportService(scheduler, export.NewCSVExporter(), export.NewXLSXExporter(), logr)
	auth := service.NewAuthService(cfg.JWT.Secret, clk)

	engine := router.New(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Observer:       metrics,
		Auth:           auth,
	}, router.Handlers{
		Requests:    handler.NewServiceRequestHandler(requests, lifecycle, scheduler, dispatcher),
		Bulk:        handler.NewBulkHandler(bulk, dispatcher),
		Technicians: handler.NewTechnicianHandler(scheduler, exports),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		logr.Error("intent queue did not drain", zap.Error(err), zap.Int("pending", queue.Len()))
	}
	return nil
}
