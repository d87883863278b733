package transcode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/testutil"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "jpeg", FormatFromPath("a/b/photo.jpg"))
	assert.Equal(t, "jpeg", FormatFromPath("photo.JPG"))
	assert.Equal(t, "jpeg", FormatFromPath("photo.jpeg"))
	assert.Equal(t, "png", FormatFromPath("photo.png"))
	assert.Equal(t, "", FormatFromPath("photo"))
}

func TestCompress_JPEG(t *testing.T) {
	original := testutil.JPEG(320, 240)
	path := writeFixture(t, "photo.jpg", original)

	res, err := Transcoder{}.Compress(path, 40)
	require.NoError(t, err)

	assert.Equal(t, "jpeg", res.Format)
	assert.Equal(t, int64(len(original)), res.OriginalBytes)
	assert.Less(t, res.CompressedBytes, res.OriginalBytes)
	assert.Positive(t, res.SavedBytes())

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.CompressedBytes, int64(len(rewritten)))

	_, format, err := image.DecodeConfig(bytes.NewReader(rewritten))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompress_PNGWithAlphaIsFlattened(t *testing.T) {
	path := writeFixture(t, "shot.png", testutil.PNGWithAlpha(32, 32))

	_, err := Compress(path, DefaultQuality)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	_, a := colorAlpha(img.At(0, 0))
	assert.Equal(t, uint32(0xffff), a)
}

func TestCompress_PalettedGIF(t *testing.T) {
	path := writeFixture(t, "anim.gif", testutil.PalettedGIF(16, 16))

	res, err := Compress(path, DefaultQuality)
	require.NoError(t, err)
	assert.Equal(t, "gif", res.Format)
}

func TestCompress_UnsupportedFormatLeavesFileUntouched(t *testing.T) {
	original := []byte("RIFF0000WEBPVP8 not really")
	path := writeFixture(t, "photo.webp", original)

	_, err := Compress(path, DefaultQuality)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestCompress_CorruptInputLeavesFileUntouched(t *testing.T) {
	original := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	path := writeFixture(t, "broken.jpeg", original)

	_, err := Compress(path, DefaultQuality)
	assert.ErrorIs(t, err, ErrDecode)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompress_MissingFile(t *testing.T) {
	_, err := Compress(filepath.Join(t.TempDir(), "gone.jpg"), DefaultQuality)
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			opaque.Set(x, y, color.RGBA{R: 1, G: 2, B: 3, A: 255})
		}
	}
	assert.Same(t, opaque, Flatten(opaque).(*image.RGBA))

	transparent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	flat := Flatten(transparent)
	r, a := colorAlpha(flat.At(1, 1))
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)

	paletted := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black})
	_, isPaletted := Flatten(paletted).(*image.Paletted)
	assert.False(t, isPaletted)
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 1, clampQuality(-5))
	assert.Equal(t, 1, clampQuality(0))
	assert.Equal(t, 80, clampQuality(80))
	assert.Equal(t, 100, clampQuality(250))
}

func colorAlpha(c color.Color) (r, a uint32) {
	r, _, _, a = c.RGBA()
	return r, a
}
