// Package exifgps recovers the capture location embedded in an image's EXIF
// GPS sub-IFD.
//
// Every failure is reported through one of the sentinel errors below. None of
// them is a fault: callers treat all of them as "no location".
package exifgps

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"civicsnap/internal/models"
)

var (
	ErrNoMetadata   = errors.New("exifgps: no exif metadata")
	ErrNoGPS        = errors.New("exifgps: no gps coordinates")
	ErrMalformedGPS = errors.New("exifgps: malformed gps coordinates")
)

// Extractor adapts Extract to an interface value.
type Extractor struct{}

func (Extractor) Extract(path string) (models.Point, error) {
	return Extract(path)
}

func Extract(path string) (models.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Point{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	defer f.Close()

	return Decode(f)
}

func Decode(r io.Reader) (point models.Point, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			point = models.Point{}
			err = fmt.Errorf("%w: %v", ErrMalformedGPS, rec)
		}
	}()

	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return models.Point{}, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	lat, err := coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return models.Point{}, err
	}
	lon, err := coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return models.Point{}, err
	}

	return models.Point{Lat: lat, Lon: lon}, nil
}

func coordinate(x *exif.Exif, field, refField exif.FieldName) (float64, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrNoGPS, field, err)
	}
	refTag, err := x.Get(refField)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrNoGPS, refField, err)
	}

	ref, err := refTag.StringVal()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedGPS, refField, err)
	}
	if tag.Count != 3 {
		return 0, fmt.Errorf("%w: %s has %d values", ErrMalformedGPS, field, tag.Count)
	}

	var dms [3]float64
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, fmt.Errorf("%w: %s[%d]: %v", ErrMalformedGPS, field, i, err)
		}
		if den == 0 {
			return 0, fmt.Errorf("%w: %s[%d] has zero denominator", ErrMalformedGPS, field, i)
		}
		dms[i] = float64(num) / float64(den)
	}

	return ToDecimal(dms[0], dms[1], dms[2], ref), nil
}

// ToDecimal converts a degrees/minutes/seconds triple to signed decimal
// degrees. South and West references are negative.
func ToDecimal(degrees, minutes, seconds float64, ref string) float64 {
	decimal := degrees + minutes/60 + seconds/3600
	switch strings.ToUpper(strings.TrimSpace(strings.TrimRight(ref, "\x00"))) {
	case "S", "W":
		return -decimal
	}
	return decimal
}
