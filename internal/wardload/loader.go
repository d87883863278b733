// Package wardload imports ward boundaries from a GeoJSON FeatureCollection.
package wardload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rs/zerolog"
)

var ErrNoWards = errors.New("feature collection has no usable wards")

type Sink interface {
	UpsertWard(ctx context.Context, name string, geometry *geojson.Geometry) (int64, error)
}

type Report struct {
	Loaded  int
	Skipped int
}

// Load upserts every Polygon or MultiPolygon feature, named by the nameProp
// property. Features without a name or with other geometry types are skipped.
func Load(ctx context.Context, r io.Reader, nameProp string, sink Sink, log zerolog.Logger) (Report, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Report{}, fmt.Errorf("read input: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return Report{}, fmt.Errorf("parse feature collection: %w", err)
	}

	var report Report
	for i, feature := range fc.Features {
		name := featureName(feature, nameProp)
		if name == "" {
			log.Warn().Int("feature", i).Str("property", nameProp).Msg("skipping feature without name")
			report.Skipped++
			continue
		}
		g := feature.Geometry
		if g == nil || !(g.IsPolygon() || g.IsMultiPolygon()) {
			log.Warn().Int("feature", i).Str("ward", name).Msg("skipping non-polygon feature")
			report.Skipped++
			continue
		}

		id, err := sink.UpsertWard(ctx, name, g)
		if err != nil {
			return report, fmt.Errorf("upsert ward %q: %w", name, err)
		}
		log.Info().Int64("ward_id", id).Str("ward", name).Msg("ward loaded")
		report.Loaded++
	}

	if report.Loaded == 0 {
		return report, ErrNoWards
	}
	return report, nil
}

// LoadFile is Load over the file at path.
func LoadFile(ctx context.Context, path, nameProp string, sink Sink, log zerolog.Logger) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Load(ctx, f, nameProp, sink, log)
}

func featureName(f *geojson.Feature, prop string) string {
	v, ok := f.Properties[prop]
	if !ok || v == nil {
		return ""
	}
	switch name := v.(type) {
	case string:
		return strings.TrimSpace(name)
	case float64:
		return fmt.Sprintf("%g", name)
	default:
		return strings.TrimSpace(fmt.Sprint(name))
	}
}
