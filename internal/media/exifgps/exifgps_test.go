package exifgps

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/testutil"
)

func TestToDecimal(t *testing.T) {
	cases := []struct {
		name    string
		d, m, s float64
		ref     string
		want    float64
	}{
		{"north", 12, 58, 17.76, "N", 12.9716},
		{"east", 77, 35, 40.56, "E", 77.5946},
		{"south", 33, 52, 4.0, "S", -(33 + 52.0/60 + 4.0/3600)},
		{"west", 0, 7, 39.0, "W", -(7.0/60 + 39.0/3600)},
		{"lowercase ref", 10, 30, 0, "s", -10.5},
		{"nul padded ref", 10, 30, 0, "W\x00", -10.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ToDecimal(tc.d, tc.m, tc.s, tc.ref), 1e-9)
		})
	}
}

func TestDecode_GPSTagged(t *testing.T) {
	data := testutil.JPEGWithGPS(12.9716, 77.5946)

	point, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.InDelta(t, 12.9716, point.Lat, 1e-6)
	assert.InDelta(t, 77.5946, point.Lon, 1e-6)
}

func TestDecode_SouthWestHemisphere(t *testing.T) {
	data := testutil.JPEGWithGPS(-22.9068, -43.1729)

	point, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.InDelta(t, -22.9068, point.Lat, 1e-6)
	assert.InDelta(t, -43.1729, point.Lon, 1e-6)
}

func TestDecode_NoExifBlock(t *testing.T) {
	_, err := Decode(bytes.NewReader(testutil.JPEG(16, 16)))
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestDecode_NotAnImage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("definitely not a jpeg")))
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestDecode_EmptyInput(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestDecode_MissingLongitude(t *testing.T) {
	fix := testutil.NewGPSFix(12.9716, 77.5946)
	fix.Lon = nil
	data := testutil.WithEXIF(testutil.JPEG(16, 16), fix.TIFF())

	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNoGPS)
}

func TestDecode_MissingHemisphereRef(t *testing.T) {
	fix := testutil.NewGPSFix(12.9716, 77.5946)
	fix.LatRef = ""
	data := testutil.WithEXIF(testutil.JPEG(16, 16), fix.TIFF())

	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNoGPS)
}

func TestDecode_ZeroDenominator(t *testing.T) {
	fix := testutil.NewGPSFix(12.9716, 77.5946)
	fix.Lat = [][2]uint32{{12, 1}, {58, 0}, {0, 1}}
	data := testutil.WithEXIF(testutil.JPEG(16, 16), fix.TIFF())

	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrMalformedGPS)
}

func TestDecode_WrongRationalCount(t *testing.T) {
	fix := testutil.NewGPSFix(12.9716, 77.5946)
	fix.Lon = [][2]uint32{{77, 1}, {35, 1}}
	data := testutil.WithEXIF(testutil.JPEG(16, 16), fix.TIFF())

	_, err := Decode(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrMalformedGPS)
}

func TestExtract_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, testutil.JPEGWithGPS(51.5007, -0.1246), 0o600))

	point, err := Extractor{}.Extract(path)
	require.NoError(t, err)
	assert.InDelta(t, 51.5007, point.Lat, 1e-6)
	assert.InDelta(t, -0.1246, point.Lon, 1e-6)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "absent.jpg"))
	assert.ErrorIs(t, err, ErrNoMetadata)
}
