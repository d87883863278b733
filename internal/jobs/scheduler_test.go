package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/observability"
	"civicsnap/internal/staging"
)

type stubSweeper struct {
	removed int
	err     error
	maxAge  time.Duration
}

func (s *stubSweeper) Sweep(maxAge time.Duration) (int, error) {
	s.maxAge = maxAge
	return s.removed, s.err
}

func TestSweepStaging_CountsRemovedFiles(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	dir := t.TempDir()
	area, err := staging.New(dir, 0, clock)
	require.NoError(t, err)

	stale := filepath.Join(dir, "stale.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := clock.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(fresh, clock.Now(), clock.Now()))

	metrics := observability.NewMetricsForTesting()
	s := NewScheduler(area, "0 */10 * * * *", time.Hour, metrics, zerolog.Nop())
	s.sweepStaging()

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StagingSwept), 0)
}

func TestSweepStaging_ErrorIsLoggedNotFatal(t *testing.T) {
	sweeper := &stubSweeper{removed: 2, err: errors.New("permission denied")}
	metrics := observability.NewMetricsForTesting()
	s := NewScheduler(sweeper, "@every 1m", 30*time.Minute, metrics, zerolog.Nop())

	s.sweepStaging()

	assert.Equal(t, 30*time.Minute, sweeper.maxAge)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.StagingSwept), 0)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&stubSweeper{}, "not a cron spec", time.Hour, observability.NewMetricsForTesting(), zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestStart_EmptyScheduleDisablesSweep(t *testing.T) {
	s := NewScheduler(&stubSweeper{}, "", time.Hour, observability.NewMetricsForTesting(), zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop(time.Second)
}
