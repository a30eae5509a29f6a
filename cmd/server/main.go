package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appmanifest "github.com/manifest/backend/internal/application/manifest"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/infrastructure/cache"
	"github.com/manifest/backend/internal/infrastructure/carrier"
	"github.com/manifest/backend/internal/infrastructure/config"
	"github.com/manifest/backend/internal/infrastructure/logger"
	"github.com/manifest/backend/internal/infrastructure/persistence"
	"github.com/manifest/backend/internal/infrastructure/scheduler"
	"github.com/manifest/backend/internal/infrastructure/storage"
	"github.com/manifest/backend/internal/infrastructure/telemetry"
	"github.com/manifest/backend/internal/interfaces/http/handler"
	"github.com/manifest/backend/internal/interfaces/http/middleware"
	"github.com/manifest/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

var (
	_ appmanifest.PipelineMetrics = (*telemetry.Metrics)(nil)
	_ manifest.ShipmentGateway    = (*carrier.Client)(nil)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting manifest service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("carrier_mode", cfg.Carrier.Mode),
		zap.Bool("dry_run", cfg.Manifest.DryRun),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		_ = lp.Shutdown(context.Background())
	}()
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		_ = profiler.Stop()
	}()
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tp.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:                logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold:        cfg.Telemetry.DBSlowQueryThresh,
		IgnoreRecordNotFound: true,
	})
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if db.Driver == "sqlite" {
		// sqlite is the local development driver; postgres schemas come from cmd/migrate
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem(db.Driver),
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	metrics := telemetry.NewMetrics()

	gateway, err := carrier.NewClient(carrier.Config{
		Mode:    cfg.Carrier.Mode,
		Token:   cfg.Carrier.Token,
		BaseURL: cfg.Carrier.BaseURL,
		Timeout: cfg.Carrier.Timeout,
	},
		carrier.WithLogger(log),
		carrier.WithLatencyObserver(metrics.ObserveGatewayLatency),
	)
	if err != nil {
		log.Fatal("Failed to configure carrier client", zap.Error(err))
	}
	log.Info("Carrier client ready", zap.String("base_url", gateway.BaseURL()))

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	archive := newArchive(ctx, cfg, log)

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	builder := manifest.NewShipmentBuilder(manifest.BuilderConfig{
		Compliance: cfg.Compliance,
		Country:    cfg.Manifest.Country,
	})
	manifestService := appmanifest.NewManifestService(
		orderRepo,
		persistence.NewGormTransactionScope(db.DB),
		gateway,
		builder,
		appmanifest.ManifestConfig{
			Pickup:         cfg.Pickup,
			DryRun:         cfg.Manifest.DryRun,
			GatewayTimeout: cfg.Carrier.Timeout,
			IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		},
		log,
		appmanifest.WithArchive(archive),
		appmanifest.WithIdempotencyStore(idempotencyStore),
		appmanifest.WithMetrics(metrics),
	)
	actionService := appmanifest.NewShipmentActionService(
		ledgerRepo,
		gateway,
		appmanifest.ShipmentActionConfig{
			DryRun:         cfg.Manifest.DryRun,
			GatewayTimeout: cfg.Carrier.Timeout,
		},
		metrics,
		log,
	)
	importService := appmanifest.NewImportService(orderRepo, metrics, log)
	ledgerService := appmanifest.NewLedgerQueryService(ledgerRepo)

	var monitor *scheduler.PendingBatchMonitor
	if cfg.Manifest.PendingCheckInterval > 0 {
		monitorCfg := scheduler.DefaultPendingBatchMonitorConfig()
		monitorCfg.CheckInterval = cfg.Manifest.PendingCheckInterval
		monitorCfg.OlderThan = cfg.Manifest.PendingBatchAge
		monitor, err = scheduler.NewPendingBatchMonitor(monitorCfg, ledgerService, metrics.ObservePendingBatches, log)
		if err != nil {
			log.Fatal("Failed to create pending batch monitor", zap.Error(err))
		}
		if err := monitor.Start(ctx); err != nil {
			log.Fatal("Failed to start pending batch monitor", zap.Error(err))
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		HTTPMetrics: metrics,
		Profiling: middleware.ProfilingConfig{
			Enabled:   profiler.IsEnabled(),
			SkipPaths: []string{"/health", cfg.Metrics.Path},
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(db, cfg.Manifest.DryRun)
	r := router.NewRouter(engine).
		Register(handler.NewOrderHandler(importService)).
		Register(handler.NewManifestHandler(manifestService, actionService)).
		Register(handler.NewDebugHandler(ledgerService, cfg.Manifest.PendingBatchAge)).
		Register(systemHandler).
		Mount(http.MethodGet, "/health", systemHandler.Health)
	if cfg.Metrics.Enabled {
		r.Mount(http.MethodGet, cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if monitor != nil {
		if err := monitor.Stop(shutdownCtx); err != nil {
			log.Warn("Pending batch monitor did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// newArchive returns the S3 archive when storage is enabled. Archiving is
// best effort, so a storage outage at startup degrades to the no-op archive.
func newArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) appmanifest.PayloadArchive {
	if !cfg.Storage.Enabled {
		return storage.NopArchive{}
	}
	archive, err := storage.NewS3Archive(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Warn("Payload archive disabled", zap.Error(err))
		return storage.NopArchive{}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := archive.EnsureBucket(checkCtx); err != nil {
		log.Warn("Payload archive bucket unavailable", zap.String("bucket", archive.Bucket()), zap.Error(err))
	}
	return archive
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}
