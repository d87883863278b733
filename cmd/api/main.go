package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"civicsnap/internal/config"
	"civicsnap/internal/database"
	"civicsnap/internal/handlers"
	"civicsnap/internal/jobs"
	"civicsnap/internal/log"
	"civicsnap/internal/media/exifgps"
	"civicsnap/internal/media/transcode"
	"civicsnap/internal/observability"
	"civicsnap/internal/queue"
	"civicsnap/internal/repository"
	"civicsnap/internal/repository/memory"
	"civicsnap/internal/server"
	"civicsnap/internal/service"
	"civicsnap/internal/staging"
	"civicsnap/internal/storage"
	"civicsnap/internal/wardload"
)

type complaintBackend interface {
	service.ComplaintStore
	handlers.ComplaintReader
}

type wardBackend interface {
	service.WardLocator
	handlers.WardLister
}

type backend struct {
	complaints complaintBackend
	wards      wardBackend
	db         handlers.Pinger
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open complaint store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = queue.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	} else {
		logger.Warn().Msg("redis disabled, orphaned blobs will only be logged")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	stagingArea, err := staging.New(cfg.Pipeline.StagingDir, cfg.Pipeline.MaxUploadBytes, clockwork.NewRealClock())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare staging dir")
	}

	metrics := observability.NewMetrics()

	submissions := service.NewSubmissionService(service.SubmissionDeps{
		Extractor:  exifgps.Extractor{},
		Transcoder: transcode.Transcoder{},
		Complaints: store.complaints,
		Wards:      store.wards,
		Blobs:      objectStore,
		Tasks:      queue.NewPublisher(redisClient, cfg.Redis.Stream),
		Staging:    stagingArea,
		Metrics:    metrics,
	}, cfg.Pipeline, logger)

	deps := handlers.Dependencies{
		Submissions: submissions,
		Complaints:  store.complaints,
		Wards:       store.wards,
		Database:    store.db,
		Storage:     objectStore,
		Cache:       redisClient,
	}
	handlerSet := handlers.NewHandlerSet(logger, cfg, deps)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(stagingArea, cfg.Pipeline.SweepSchedule, cfg.Pipeline.StagingMaxAge, metrics, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, store, redisClient)
}

func openBackend(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (backend, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory complaint store, data is lost on restart")
		store := memory.New(cfg.Pipeline.DuplicateRadiusMeters)
		if cfg.Database.WardsFile == "" {
			logger.Warn().Msg("no database.wardsfile, every complaint routes to Unknown Area")
		} else {
			report, err := wardload.LoadFile(ctx, cfg.Database.WardsFile, cfg.Database.WardsNameProperty, store, logger)
			if err != nil {
				return backend{}, fmt.Errorf("load wards: %w", err)
			}
			logger.Info().Int("loaded", report.Loaded).Int("skipped", report.Skipped).Msg("wards loaded into memory store")
		}
		return backend{complaints: store, wards: store, db: store, close: func() {}}, nil
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return backend{}, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.AutoMigrate {
			if err := database.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return backend{}, fmt.Errorf("ensure schema: %w", err)
			}
		}
		complaints := repository.NewComplaintRepository(pool, cfg.Pipeline.DuplicateRadiusMeters)
		return backend{
			complaints: complaints,
			wards:      repository.NewWardRepository(pool),
			db:         complaints,
			close:      pool.Close,
		}, nil
	default:
		return backend{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, store backend, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop(5 * time.Second)

	store.close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
