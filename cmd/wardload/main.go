package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"civicsnap/internal/config"
	"civicsnap/internal/database"
	"civicsnap/internal/log"
	"civicsnap/internal/repository"
	"civicsnap/internal/wardload"
)

func main() {
	file := flag.String("file", "", "GeoJSON FeatureCollection of ward boundaries")
	nameProp := flag.String("name-property", "name", "feature property holding the ward name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New(cfg.Environment)

	if err := run(cfg, logger, *file, *nameProp); err != nil {
		logger.Error().Err(err).Msg("ward load failed")
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger zerolog.Logger, file, nameProp string) error {
	if file == "" {
		return errors.New("-file is required")
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("ward loading needs the postgres driver, got %q", cfg.Database.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	report, err := wardload.LoadFile(ctx, file, nameProp, repository.NewWardRepository(pool), logger)
	if err != nil {
		return err
	}
	logger.Info().Int("loaded", report.Loaded).Int("skipped", report.Skipped).Msg("ward load complete")
	return nil
}
