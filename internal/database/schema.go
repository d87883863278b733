package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS wards (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		geom geometry(MultiPolygon, 4326) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wards_geom_idx ON wards USING GIST (geom)`,
	`CREATE TABLE IF NOT EXISTS complaints (
		id          BIGSERIAL PRIMARY KEY,
		image_url   TEXT NOT NULL,
		description TEXT NOT NULL,
		category    TEXT NOT NULL,
		geom        geometry(Point, 4326) NOT NULL,
		ward_id     BIGINT REFERENCES wards (id),
		status      TEXT NOT NULL DEFAULT 'open',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS complaints_geog_idx ON complaints USING GIST ((geom::geography))`,
	`CREATE INDEX IF NOT EXISTS complaints_created_at_idx ON complaints (created_at DESC)`,
}

// EnsureSchema creates the PostGIS extension, tables and spatial indexes when
// they are missing. It is safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
