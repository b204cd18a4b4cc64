package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/user/campuscore/internal/adapter/events"
	"github.com/user/campuscore/internal/adapter/repository/postgres"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/pkg/config"
	"github.com/user/campuscore/internal/pkg/logger"
	"github.com/user/campuscore/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

// Standalone lifecycle sweeper for deployments that run it as a cron job or a
// separate process instead of inside the registry server. Safe to run
// alongside the in-server sweeper: the transition is a single conditional
// update, so overlapping runs do not double-suspend.
func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registryDB, err := sql.Open("postgres", cfg.RegistryURL)
	if err != nil {
		logger.Error("failed to connect to registry database", "error", err)
		os.Exit(1)
	}
	defer registryDB.Close()

	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger, nil)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	schoolRepo := postgres.NewSchoolRepository(registryDB, logger)
	sweeper := usecase.NewSweeper(schoolRepo, publisher, logger, nil)

	if *once {
		count, err := sweeper.Sweep(ctx, time.Now())
		if err != nil {
			os.Exit(1)
		}
		logger.Info("sweep complete", "suspended", count)
		return
	}

	sweeper.Run(ctx, cfg.SweepInterval)
}
