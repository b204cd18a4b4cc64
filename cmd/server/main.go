package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/campuscore/internal/adapter/api"
	"github.com/user/campuscore/internal/adapter/events"
	"github.com/user/campuscore/internal/adapter/events/spool"
	"github.com/user/campuscore/internal/adapter/metrics"
	"github.com/user/campuscore/internal/adapter/provisioner"
	"github.com/user/campuscore/internal/adapter/repository/postgres"
	redisrepo "github.com/user/campuscore/internal/adapter/repository/redis"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/pkg/config"
	"github.com/user/campuscore/internal/pkg/logger"
	"github.com/user/campuscore/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewRegistryMetrics()

	// --- Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Registry Database ---
	registryDB, err := sql.Open("postgres", cfg.RegistryURL)
	if err != nil {
		logger.Error("failed to connect to registry database", "error", err)
		os.Exit(1)
	}
	defer registryDB.Close()

	// The maintenance connection targets the cluster's default database; it is
	// only used for CREATE DATABASE.
	maintenanceDB, err := sql.Open("postgres", tenantDSN(cfg.TenantDSN, "postgres"))
	if err != nil {
		logger.Error("failed to connect to tenant cluster", "error", err)
		os.Exit(1)
	}
	defer maintenanceDB.Close()

	connect := func(ctx context.Context, dbName string) (*sql.DB, error) {
		return sql.Open("postgres", tenantDSN(cfg.TenantDSN, dbName))
	}

	// --- Repositories ---
	schoolRepo := postgres.NewSchoolRepository(registryDB, logger)
	subRepo := postgres.NewSubscriptionRepository(registryDB)
	invoiceRepo := postgres.NewInvoiceRepository(registryDB)
	adminRepo := postgres.NewSchoolAdminRepository(registryDB)

	var planRepo domain.PlanRepository = postgres.NewPlanRepository(registryDB)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, serving plans without a cache", "error", err)
		} else {
			planRepo = redisrepo.NewPlanCache(planRepo, redisClient, cfg.PlanCacheTTL, logger, m)
		}
	}

	// --- Lifecycle Event Publisher ---
	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger, m)
		defer kafkaPublisher.Close()

		eventSpool, err := spool.New(cfg.SpoolDir, cfg.SpoolJournalSize, cfg.SpoolMaxSize, logger)
		if err != nil {
			logger.Error("failed to open event spool", "error", err)
			os.Exit(1)
		}
		defer eventSpool.Close()

		spooling := events.NewSpoolingPublisher(kafkaPublisher, eventSpool, logger)
		go spooling.StartDrainLoop(ctx, cfg.SpoolDrainEvery)
		publisher = spooling
	}

	// --- Use Cases ---
	tenantProvisioner := provisioner.New(maintenanceDB, connect, adminRepo, cfg.AssetsRoot, logger)
	ledger := usecase.NewLedger(planRepo, subRepo, invoiceRepo, schoolRepo, logger)
	provisionUC := usecase.NewProvisionUseCase(schoolRepo, tenantProvisioner, ledger, publisher, logger, m, cfg.BaseDomain, cfg.TrialDays)
	schoolService := usecase.NewSchoolService(schoolRepo, subRepo, publisher, logger)

	// --- Lifecycle Sweeper ---
	sweeper := usecase.NewSweeper(schoolRepo, publisher, logger, m)
	go sweeper.Run(ctx, cfg.SweepInterval)

	// --- API Server ---
	router := api.NewRouter(cfg, logger, provisionUC, schoolService, ledger, planRepo)
	apiServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.ProvisionTimeout,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting registry server", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("registry server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("registry server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

// tenantDSN substitutes the database name into the configured template.
func tenantDSN(template, dbName string) string {
	return strings.Replace(template, "{database}", dbName, 1)
}
