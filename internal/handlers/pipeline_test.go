package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"civicsnap/internal/config"
	"civicsnap/internal/media/exifgps"
	"civicsnap/internal/media/transcode"
	"civicsnap/internal/observability"
	"civicsnap/internal/repository/memory"
	"civicsnap/internal/service"
	"civicsnap/internal/staging"
	"civicsnap/internal/storage"
)

type discardBlobs struct{}

func (discardBlobs) Upload(_ context.Context, input storage.UploadInput) (storage.Object, error) {
	if _, err := io.Copy(io.Discard, input.Body); err != nil {
		return storage.Object{}, err
	}
	key := uuid.NewString() + input.Ext
	return storage.Object{Bucket: "complaint-images", Key: key, URL: "https://cdn.test/" + key}, nil
}

func (discardBlobs) Remove(context.Context, string) error { return nil }

func newInMemoryPipeline(t *testing.T, store *memory.Store) *service.SubmissionService {
	t.Helper()
	area, err := staging.New(t.TempDir(), 1<<20, nil)
	require.NoError(t, err)

	return service.NewSubmissionService(service.SubmissionDeps{
		Extractor:  exifgps.Extractor{},
		Transcoder: transcode.Transcoder{},
		Complaints: store,
		Wards:      store,
		Blobs:      discardBlobs{},
		Staging:    area,
		Metrics:    observability.NewMetricsForTesting(),
	}, config.PipelineConfig{DuplicateRadiusMeters: 20, Quality: 80}, zerolog.Nop())
}
