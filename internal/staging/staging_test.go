package staging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArea(t *testing.T, maxBytes int64, clock clockwork.Clock) *Area {
	t.Helper()
	area, err := New(filepath.Join(t.TempDir(), "uploads"), maxBytes, clock)
	require.NoError(t, err)
	return area
}

func dirLen(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestStage_WritesTokenNamedFile(t *testing.T) {
	area := newArea(t, 0, nil)

	f, err := area.Stage(strings.NewReader("pixels"), ".jpg")
	require.NoError(t, err)

	assert.Equal(t, ".jpg", f.Ext)
	assert.Equal(t, int64(6), f.Size)
	assert.Equal(t, filepath.Join(area.Dir(), f.Token+".jpg"), f.Path)

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
}

func TestStage_SameExtensionDoesNotCollide(t *testing.T) {
	area := newArea(t, 0, nil)

	a, err := area.Stage(strings.NewReader("a"), ".jpg")
	require.NoError(t, err)
	b, err := area.Stage(strings.NewReader("b"), ".jpg")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, 2, dirLen(t, area.Dir()))
}

func TestStage_TooLarge(t *testing.T) {
	area := newArea(t, 4, nil)

	_, err := area.Stage(bytes.NewReader([]byte("12345")), ".png")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, dirLen(t, area.Dir()))

	f, err := area.Stage(bytes.NewReader([]byte("1234")), ".png")
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.Size)
}

func TestRemove_Idempotent(t *testing.T) {
	area := newArea(t, 0, nil)
	f, err := area.Stage(strings.NewReader("x"), ".gif")
	require.NoError(t, err)

	require.NoError(t, area.Remove(f))
	require.NoError(t, area.Remove(f))
	require.NoError(t, area.Remove(File{}))
	assert.NoFileExists(t, f.Path)
}

func TestSweep_RemovesOnlyStaleFiles(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	area := newArea(t, 0, clock)

	stale, err := area.Stage(strings.NewReader("old"), ".jpg")
	require.NoError(t, err)
	fresh, err := area.Stage(strings.NewReader("new"), ".jpg")
	require.NoError(t, err)

	require.NoError(t, os.Chtimes(stale.Path, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(fresh.Path, now.Add(-time.Minute), now.Add(-time.Minute)))

	removed, err := area.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale.Path)
	assert.FileExists(t, fresh.Path)

	clock.Advance(2 * time.Hour)
	removed, err = area.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, fresh.Path)
}

func TestCleanExt(t *testing.T) {
	assert.Equal(t, ".jpg", CleanExt(".jpg"))
	assert.Equal(t, ".JPEG", CleanExt("JPEG"))
	assert.Equal(t, "", CleanExt(""))
	assert.Equal(t, "", CleanExt("."))
	assert.Equal(t, "", CleanExt(".j/pg"))
	assert.Equal(t, "", CleanExt(".averyveryverylongext"))
}
