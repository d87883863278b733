package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	geojson "github.com/paulmach/go.geojson"

	"civicsnap/internal/models"
)

var ErrUnsupportedGeometry = errors.New("ward geometry must be a Polygon or MultiPolygon")

type WardRepository struct {
	pool *pgxpool.Pool
}

func NewWardRepository(pool *pgxpool.Pool) *WardRepository {
	return &WardRepository{pool: pool}
}

// FindContainingWard reports the ward whose boundary contains p. Wards are
// expected to partition the city; on overlap the lowest id wins.
func (r *WardRepository) FindContainingWard(ctx context.Context, p models.Point) (models.Ward, bool, error) {
	const query = `
		SELECT id, name FROM wards
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY id
		LIMIT 1
	`

	var ward models.Ward
	if err := r.pool.QueryRow(ctx, query, p.Lon, p.Lat).Scan(&ward.ID, &ward.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ward{}, false, nil
		}
		return models.Ward{}, false, err
	}
	return ward, true, nil
}

func (r *WardRepository) ListWards(ctx context.Context) ([]models.WardBoundary, error) {
	const query = `SELECT id, name, ST_AsGeoJSON(geom) FROM wards ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wards []models.WardBoundary
	for rows.Next() {
		var (
			ward models.WardBoundary
			raw  []byte
		)
		if err := rows.Scan(&ward.ID, &ward.Name, &raw); err != nil {
			return nil, err
		}
		geometry, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("ward %d geometry: %w", ward.ID, err)
		}
		ward.Geometry = geometry
		wards = append(wards, ward)
	}
	return wards, rows.Err()
}

// UpsertWard stores the boundary under name, replacing the geometry of an
// existing ward with the same name.
func (r *WardRepository) UpsertWard(ctx context.Context, name string, geometry *geojson.Geometry) (int64, error) {
	if geometry == nil || !(geometry.IsPolygon() || geometry.IsMultiPolygon()) {
		return 0, ErrUnsupportedGeometry
	}
	raw, err := geometry.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("marshal geometry: %w", err)
	}

	const query = `
		INSERT INTO wards (name, geom)
		VALUES ($1, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($2), 4326)))
		ON CONFLICT (name) DO UPDATE SET geom = EXCLUDED.geom
		RETURNING id
	`
	var id int64
	if err := r.pool.QueryRow(ctx, query, name, string(raw)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
