package sniffer

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/testutil"
)

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want MediaType
		ext  string
	}{
		{"jpeg", testutil.JPEG(4, 4), TypeJPEG, ".jpg"},
		{"png", testutil.PNGWithAlpha(4, 4), TypePNG, ".png"},
		{"gif", testutil.PalettedGIF(4, 4), TypeGIF, ".gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), TypeWEBP, ".webp"},
		{"bmp", append([]byte("BM"), make([]byte, 20)...), TypeBMP, ".bmp"},
		{"tiff little endian", testutil.GPSFix{}.TIFF(), TypeTIFF, ".tiff"},
		{"tiff big endian", []byte{'M', 'M', 0x00, 0x2a, 0, 0, 0, 8}, TypeTIFF, ".tiff"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Type)
			assert.Equal(t, tc.ext, got.Ext())
			assert.NotEmpty(t, got.MIME)
		})
	}
}

func TestDetectHead_Unknown(t *testing.T) {
	_, err := DetectHead([]byte("plain text, not an image"))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.Equal(t, "", Result{}.Ext())
}

func TestDetect_ReturnsConsumedHead(t *testing.T) {
	data := testutil.JPEG(16, 16)
	result, head, err := Detect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, TypeJPEG, result.Type)
	assert.Equal(t, data[:len(head)], head)
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", MimeTypeFromHTTP(h))

	h.Set("Content-Type", "image/jpeg; charset=binary")
	assert.Equal(t, "image/jpeg", MimeTypeFromHTTP(h))
}
