package models

import geojson "github.com/paulmach/go.geojson"

type Ward struct {
	ID   int64
	Name string
}

type WardBoundary struct {
	Ward
	Geometry *geojson.Geometry
}
