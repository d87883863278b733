package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"civicsnap/internal/models"
)

var (
	ErrComplaintNotFound  = errors.New("complaint not found")
	ErrDuplicateComplaint = errors.New("duplicate complaint within radius")
)

// ComplaintRepository stores complaints as SRID 4326 points. Every query
// binds longitude before latitude, matching ST_MakePoint(x, y).
type ComplaintRepository struct {
	pool        *pgxpool.Pool
	guardRadius float64
}

// NewComplaintRepository returns a repository whose inserts re-check for a
// same-category duplicate within guardRadius meters under a per-category
// advisory lock. guardRadius <= 0 disables the check.
func NewComplaintRepository(pool *pgxpool.Pool, guardRadius float64) *ComplaintRepository {
	return &ComplaintRepository{pool: pool, guardRadius: guardRadius}
}

func (r *ComplaintRepository) FindNearbyActive(ctx context.Context, p models.Point, radiusMeters float64) ([]models.NearbyComplaint, error) {
	const query = `
		SELECT id, category, status,
		       ST_Distance(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		FROM complaints
		WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		  AND status <> $4
		ORDER BY 4
	`

	rows, err := r.pool.Query(ctx, query, p.Lon, p.Lat, radiusMeters, string(models.ComplaintStatusResolved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nearby []models.NearbyComplaint
	for rows.Next() {
		var n models.NearbyComplaint
		if err := rows.Scan(&n.ID, &n.Category, &n.Status, &n.DistanceMeters); err != nil {
			return nil, err
		}
		nearby = append(nearby, n)
	}
	return nearby, rows.Err()
}

func (r *ComplaintRepository) InsertComplaint(ctx context.Context, c models.NewComplaint) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if r.guardRadius > 0 {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, c.Category); err != nil {
			return 0, fmt.Errorf("advisory lock: %w", err)
		}

		const exists = `
			SELECT EXISTS (
				SELECT 1 FROM complaints
				WHERE ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
				  AND status <> $4
				  AND category = $5
			)
		`
		var duplicate bool
		if err := tx.QueryRow(ctx, exists, c.Location.Lon, c.Location.Lat, r.guardRadius, string(models.ComplaintStatusResolved), c.Category).Scan(&duplicate); err != nil {
			return 0, fmt.Errorf("duplicate guard: %w", err)
		}
		if duplicate {
			return 0, ErrDuplicateComplaint
		}
	}

	const insert = `
		INSERT INTO complaints (image_url, description, geom, ward_id, category)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326), $5, $6)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRow(ctx, insert,
		c.ImageURL,
		c.Description,
		c.Location.Lon,
		c.Location.Lat,
		c.WardID,
		c.Category,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const complaintColumns = `
	c.id, c.image_url, c.description, c.category, ST_Y(c.geom), ST_X(c.geom),
	c.ward_id, w.name, c.status, c.created_at
`

func (r *ComplaintRepository) GetComplaint(ctx context.Context, id int64) (models.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
		FROM complaints c LEFT JOIN wards w ON w.id = c.ward_id
		WHERE c.id = $1`

	complaint, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Complaint{}, ErrComplaintNotFound
		}
		return models.Complaint{}, err
	}
	return complaint, nil
}

func (r *ComplaintRepository) ListComplaints(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + `
		FROM complaints c LEFT JOIN wards w ON w.id = c.ward_id
		WHERE ($1 = '' OR c.category = $1)
		  AND ($2 = '' OR c.status = $2)
		  AND ($3::bigint IS NULL OR c.ward_id = $3)
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $4 OFFSET $5`

	// LIMIT NULL means no limit.
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, query, filter.Category, filter.Status, filter.WardID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var complaints []models.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		complaints = append(complaints, complaint)
	}
	return complaints, rows.Err()
}

func (r *ComplaintRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanComplaint(row pgx.Row) (models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(
		&c.ID,
		&c.ImageURL,
		&c.Description,
		&c.Category,
		&c.Location.Lat,
		&c.Location.Lon,
		&c.WardID,
		&c.WardName,
		&c.Status,
		&c.CreatedAt,
	)
	return c, err
}
