package memory

import (
	"context"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/models"
	"civicsnap/internal/repository"
)

var center = models.Point{Lat: 12.9716, Lon: 77.5946}

// offsetNorth moves p roughly meters to the north.
func offsetNorth(p models.Point, meters float64) models.Point {
	return models.Point{Lat: p.Lat + meters/111195.0, Lon: p.Lon}
}

func square(minLon, minLat, maxLon, maxLat float64) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}})
}

func insert(t *testing.T, s *Store, category string, p models.Point) int64 {
	t.Helper()
	id, err := s.InsertComplaint(context.Background(), models.NewComplaint{
		ImageURL:    "http://img/" + category,
		Description: "desc",
		Category:    category,
		Location:    p,
	})
	require.NoError(t, err)
	return id
}

func TestDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, DistanceMeters(center, center), 1e-9)
	assert.InDelta(t, 5, DistanceMeters(center, offsetNorth(center, 5)), 0.05)
	assert.InDelta(t, 111195, DistanceMeters(models.Point{Lat: 0, Lon: 0}, models.Point{Lat: 1, Lon: 0}), 1)
}

func TestFindNearbyActive(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	near := insert(t, s, "pothole", offsetNorth(center, 5))
	insert(t, s, "streetlight", offsetNorth(center, 15))
	insert(t, s, "pothole", offsetNorth(center, 40))
	resolved := insert(t, s, "pothole", center)
	require.True(t, s.SetStatus(resolved, models.ComplaintStatusResolved))

	nearby, err := s.FindNearbyActive(ctx, center, 20)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, near, nearby[0].ID)
	assert.Equal(t, "pothole", nearby[0].Category)
	assert.Equal(t, "streetlight", nearby[1].Category)
	assert.Less(t, nearby[0].DistanceMeters, nearby[1].DistanceMeters)
}

func TestInsertComplaint_GuardRejectsSameCategory(t *testing.T) {
	s := New(20)
	ctx := context.Background()

	insert(t, s, "pothole", center)

	_, err := s.InsertComplaint(ctx, models.NewComplaint{Category: "pothole", Location: offsetNorth(center, 5)})
	assert.ErrorIs(t, err, repository.ErrDuplicateComplaint)

	_, err = s.InsertComplaint(ctx, models.NewComplaint{Category: "streetlight", Location: offsetNorth(center, 5)})
	assert.NoError(t, err)
}

func TestFindContainingWard(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	eastID, err := s.UpsertWard(ctx, "East", square(77.59, 12.96, 77.60, 12.98))
	require.NoError(t, err)
	_, err = s.UpsertWard(ctx, "West", square(77.58, 12.96, 77.59, 12.98))
	require.NoError(t, err)

	ward, ok, err := s.FindContainingWard(ctx, center)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, eastID, ward.ID)
	assert.Equal(t, "East", ward.Name)

	_, ok, err = s.FindContainingWard(ctx, models.Point{Lat: 13.5, Lon: 77.5946})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindContainingWard_ClockwiseRingAndHole(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	// Clockwise outer ring with a hole around the center point.
	geometry := geojson.NewPolygonGeometry([][][]float64{
		{{77.58, 12.96}, {77.58, 12.98}, {77.61, 12.98}, {77.61, 12.96}, {77.58, 12.96}},
		{{77.594, 12.971}, {77.595, 12.971}, {77.595, 12.972}, {77.594, 12.972}, {77.594, 12.971}},
	})
	_, err := s.UpsertWard(ctx, "Ring", geometry)
	require.NoError(t, err)

	_, ok, err := s.FindContainingWard(ctx, center)
	require.NoError(t, err)
	assert.False(t, ok)

	ward, ok, err := s.FindContainingWard(ctx, models.Point{Lat: 12.965, Lon: 77.60})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ring", ward.Name)
}

func TestUpsertWard_ReplacesByName(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	first, err := s.UpsertWard(ctx, "Central", square(0, 0, 1, 1))
	require.NoError(t, err)
	second, err := s.UpsertWard(ctx, "Central", square(10, 10, 11, 11))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, ok, err := s.FindContainingWard(ctx, models.Point{Lat: 0.5, Lon: 0.5})
	require.NoError(t, err)
	assert.False(t, ok)

	wards, err := s.ListWards(ctx)
	require.NoError(t, err)
	assert.Len(t, wards, 1)
}

func TestUpsertWard_RejectsPoint(t *testing.T) {
	_, err := New(0).UpsertWard(context.Background(), "Dot", geojson.NewPointGeometry([]float64{1, 2}))
	assert.ErrorIs(t, err, repository.ErrUnsupportedGeometry)
}

func TestListComplaints_FiltersAndPages(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	wardID, err := s.UpsertWard(ctx, "East", square(77.59, 12.96, 77.60, 12.98))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		insert(t, s, "pothole", offsetNorth(center, float64(i*100)))
	}
	_, err = s.InsertComplaint(ctx, models.NewComplaint{Category: "garbage", Location: center, WardID: &wardID})
	require.NoError(t, err)

	all, err := s.ListComplaints(ctx, models.ComplaintFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "garbage", all[0].Category)
	require.NotNil(t, all[0].WardName)
	assert.Equal(t, "East", *all[0].WardName)

	potholes, err := s.ListComplaints(ctx, models.ComplaintFilter{Category: "pothole", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, potholes, 2)

	inWard, err := s.ListComplaints(ctx, models.ComplaintFilter{WardID: &wardID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, inWard, 1)

	none, err := s.ListComplaints(ctx, models.ComplaintFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetComplaint(t *testing.T) {
	s := New(0)
	id := insert(t, s, "pothole", center)

	c, err := s.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusOpen, c.Status)
	assert.Equal(t, center, c.Location)

	_, err = s.GetComplaint(context.Background(), id+1)
	assert.ErrorIs(t, err, repository.ErrComplaintNotFound)
}

func TestUpsertWard_RejectsShortPositions(t *testing.T) {
	s := New(20)
	for _, ring := range [][][]float64{
		{{77.5}, {77.6, 12.9}, {77.6, 13.0}, {77.5}},
		{{77.5, 12.9}, {77.6, 12.9}, {77.6, 13.0}, {77.5}},
	} {
		_, err := s.UpsertWard(context.Background(), "broken", geojson.NewPolygonGeometry([][][]float64{ring}))
		assert.ErrorIs(t, err, repository.ErrUnsupportedGeometry)
	}
}

func TestListComplaints_NegativeOffsetStartsAtZero(t *testing.T) {
	s := New(20)
	_, err := s.InsertComplaint(context.Background(), models.NewComplaint{ImageURL: "a", Category: "pothole", Location: center})
	require.NoError(t, err)

	list, err := s.ListComplaints(context.Background(), models.ComplaintFilter{Offset: -100, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
