// Package memory is an in-process spatial repository backed by s2 geometry.
// It serves tests and the "memory" database driver for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"

	"civicsnap/internal/models"
	"civicsnap/internal/repository"
)

// earthRadiusMeters is the IUGG mean radius.
const earthRadiusMeters = 6371008.8

type ward struct {
	models.WardBoundary
	polygons [][]*s2.Loop
}

type Store struct {
	mu          sync.RWMutex
	guardRadius float64
	complaints  []models.Complaint
	wards       []ward
	nextID      int64
	nextWardID  int64
	now         func() time.Time
}

// New returns an empty store. guardRadius has the same meaning as in
// repository.NewComplaintRepository.
func New(guardRadius float64) *Store {
	return &Store{guardRadius: guardRadius, now: time.Now}
}

func (s *Store) FindNearbyActive(_ context.Context, p models.Point, radiusMeters float64) ([]models.NearbyComplaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nearbyLocked(p, radiusMeters), nil
}

func (s *Store) nearbyLocked(p models.Point, radiusMeters float64) []models.NearbyComplaint {
	var nearby []models.NearbyComplaint
	for _, c := range s.complaints {
		if c.Status == models.ComplaintStatusResolved {
			continue
		}
		d := DistanceMeters(p, c.Location)
		if d > radiusMeters {
			continue
		}
		nearby = append(nearby, models.NearbyComplaint{
			ID:             c.ID,
			Category:       c.Category,
			Status:         c.Status,
			DistanceMeters: d,
		})
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceMeters < nearby[j].DistanceMeters })
	return nearby
}

func (s *Store) InsertComplaint(_ context.Context, c models.NewComplaint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guardRadius > 0 {
		for _, n := range s.nearbyLocked(c.Location, s.guardRadius) {
			if n.Category == c.Category {
				return 0, repository.ErrDuplicateComplaint
			}
		}
	}

	s.nextID++
	complaint := models.Complaint{
		ID:          s.nextID,
		ImageURL:    c.ImageURL,
		Description: c.Description,
		Category:    c.Category,
		Location:    c.Location,
		WardID:      c.WardID,
		Status:      models.ComplaintStatusOpen,
		CreatedAt:   s.now().UTC(),
	}
	if c.WardID != nil {
		for _, w := range s.wards {
			if w.ID == *c.WardID {
				name := w.Name
				complaint.WardName = &name
				break
			}
		}
	}
	s.complaints = append(s.complaints, complaint)
	return complaint.ID, nil
}

func (s *Store) GetComplaint(_ context.Context, id int64) (models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.complaints {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Complaint{}, repository.ErrComplaintNotFound
}

func (s *Store) ListComplaints(_ context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Complaint
	for i := len(s.complaints) - 1; i >= 0; i-- {
		c := s.complaints[i]
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		if filter.WardID != nil && (c.WardID == nil || *c.WardID != *filter.WardID) {
			continue
		}
		out = append(out, c)
	}

	offset := max(filter.Offset, 0)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// SetStatus changes a complaint's status. Status workflows live outside this
// service; the store exposes this so fixtures can mark rows resolved.
func (s *Store) SetStatus(id int64, status models.ComplaintStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.complaints {
		if s.complaints[i].ID == id {
			s.complaints[i].Status = status
			return true
		}
	}
	return false
}

func (s *Store) FindContainingWard(_ context.Context, p models.Point) (models.Ward, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pt := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
	for _, w := range s.wards {
		if w.contains(pt) {
			return w.Ward, true, nil
		}
	}
	return models.Ward{}, false, nil
}

func (s *Store) ListWards(_ context.Context) ([]models.WardBoundary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.WardBoundary, 0, len(s.wards))
	for _, w := range s.wards {
		out = append(out, w.WardBoundary)
	}
	return out, nil
}

// UpsertWard stores a Polygon or MultiPolygon boundary. Rings may wind either
// way; loops are normalised so each encloses the smaller region.
func (s *Store) UpsertWard(_ context.Context, name string, geometry *geojson.Geometry) (int64, error) {
	polygons, err := loopsFromGeometry(geometry)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.wards {
		if s.wards[i].Name == name {
			s.wards[i].Geometry = geometry
			s.wards[i].polygons = polygons
			return s.wards[i].ID, nil
		}
	}

	s.nextWardID++
	s.wards = append(s.wards, ward{
		WardBoundary: models.WardBoundary{
			Ward:     models.Ward{ID: s.nextWardID, Name: name},
			Geometry: geometry,
		},
		polygons: polygons,
	})
	return s.nextWardID, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (w ward) contains(pt s2.Point) bool {
	for _, rings := range w.polygons {
		if !rings[0].ContainsPoint(pt) {
			continue
		}
		inHole := false
		for _, hole := range rings[1:] {
			if hole.ContainsPoint(pt) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

func loopsFromGeometry(g *geojson.Geometry) ([][]*s2.Loop, error) {
	if g == nil {
		return nil, repository.ErrUnsupportedGeometry
	}

	var polygons [][][][]float64
	switch {
	case g.IsPolygon():
		polygons = [][][][]float64{g.Polygon}
	case g.IsMultiPolygon():
		polygons = g.MultiPolygon
	default:
		return nil, repository.ErrUnsupportedGeometry
	}

	out := make([][]*s2.Loop, 0, len(polygons))
	for _, rings := range polygons {
		if len(rings) == 0 {
			return nil, repository.ErrUnsupportedGeometry
		}
		loops := make([]*s2.Loop, 0, len(rings))
		for _, ring := range rings {
			loop, err := loopFromRing(ring)
			if err != nil {
				return nil, err
			}
			loops = append(loops, loop)
		}
		out = append(out, loops)
	}
	return out, nil
}

// loopFromRing reads GeoJSON [lon, lat] positions.
func loopFromRing(ring [][]float64) (*s2.Loop, error) {
	for _, pos := range ring {
		if len(pos) < 2 {
			return nil, repository.ErrUnsupportedGeometry
		}
	}
	if len(ring) > 1 && ring[0][0] == ring[len(ring)-1][0] && ring[0][1] == ring[len(ring)-1][1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, repository.ErrUnsupportedGeometry
	}

	points := make([]s2.Point, 0, len(ring))
	for _, pos := range ring {
		lon, lat := pos[0], pos[1]
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
	}

	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop, nil
}

// DistanceMeters is the great-circle distance between a and b.
func DistanceMeters(a, b models.Point) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * earthRadiusMeters
}
