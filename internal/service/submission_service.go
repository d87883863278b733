package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"civicsnap/internal/config"
	"civicsnap/internal/media/sniffer"
	"civicsnap/internal/media/transcode"
	"civicsnap/internal/models"
	"civicsnap/internal/observability"
	"civicsnap/internal/queue"
	"civicsnap/internal/repository"
	"civicsnap/internal/staging"
	"civicsnap/internal/storage"
)

const (
	DefaultCategory    = "No category"
	DefaultDescription = "No description"
	UnknownWard        = "Unknown Area"
)

var (
	ErrNoImage       = errors.New("no image uploaded")
	ErrImageTooLarge = errors.New("image exceeds upload limit")
	ErrNoGPSMetadata = errors.New("image lacks GPS metadata")
	ErrDuplicate     = errors.New("issue already reported nearby")
	ErrStorage       = errors.New("blob storage failure")
	ErrPersistence   = errors.New("complaint persistence failure")
)

type Extractor interface {
	Extract(path string) (models.Point, error)
}

type Transcoder interface {
	Compress(path string, quality int) (transcode.Result, error)
}

type ComplaintStore interface {
	FindNearbyActive(ctx context.Context, p models.Point, radiusMeters float64) ([]models.NearbyComplaint, error)
	InsertComplaint(ctx context.Context, c models.NewComplaint) (int64, error)
}

type WardLocator interface {
	FindContainingWard(ctx context.Context, p models.Point) (models.Ward, bool, error)
}

type BlobStore interface {
	Upload(ctx context.Context, input storage.UploadInput) (storage.Object, error)
	Remove(ctx context.Context, key string) error
}

type TaskPublisher interface {
	Publish(ctx context.Context, taskType string, values map[string]any) error
}

type SubmissionInput struct {
	File        io.Reader
	Filename    string
	ContentType string
	Category    string
	Description string
}

type SubmissionResult struct {
	ComplaintID int64
	WardID      *int64
	WardName    string
	Location    models.Point
	Compressed  bool
	ImageURL    string
}

type SubmissionService struct {
	extractor  Extractor
	transcoder Transcoder
	complaints ComplaintStore
	wards      WardLocator
	blobs      BlobStore
	tasks      TaskPublisher
	staging    *staging.Area
	metrics    *observability.Metrics
	cfg        config.PipelineConfig
	log        zerolog.Logger
}

type SubmissionDeps struct {
	Extractor  Extractor
	Transcoder Transcoder
	Complaints ComplaintStore
	Wards      WardLocator
	Blobs      BlobStore
	Tasks      TaskPublisher
	Staging    *staging.Area
	Metrics    *observability.Metrics
}

func NewSubmissionService(deps SubmissionDeps, cfg config.PipelineConfig, log zerolog.Logger) *SubmissionService {
	if deps.Tasks == nil {
		deps.Tasks = (*queue.Publisher)(nil)
	}
	return &SubmissionService{
		extractor:  deps.Extractor,
		transcoder: deps.Transcoder,
		complaints: deps.Complaints,
		wards:      deps.Wards,
		blobs:      deps.Blobs,
		tasks:      deps.Tasks,
		staging:    deps.Staging,
		metrics:    deps.Metrics,
		cfg:        cfg,
		log:        log,
	}
}

// Submit runs one submission through extraction, dedup, routing,
// compression, upload and insert. The staged copy is gone when it returns.
func (s *SubmissionService) Submit(ctx context.Context, input SubmissionInput) (SubmissionResult, error) {
	if input.File == nil {
		s.outcome(observability.OutcomeNoImage)
		return SubmissionResult{}, ErrNoImage
	}
	category := valueOr(input.Category, DefaultCategory)
	description := valueOr(input.Description, DefaultDescription)

	body := bufio.NewReaderSize(input.File, 512)
	head, err := body.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		s.outcome(observability.OutcomeStagingFault)
		return SubmissionResult{}, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		s.outcome(observability.OutcomeNoImage)
		return SubmissionResult{}, ErrNoImage
	}
	detected, _ := sniffer.DetectHead(head)

	ext := staging.CleanExt(filepath.Ext(input.Filename))
	if ext == "" {
		ext = detected.Ext()
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = detected.MIME
	}

	start := time.Now()
	file, err := s.staging.Stage(body, ext)
	if err != nil {
		if errors.Is(err, staging.ErrTooLarge) {
			s.outcome(observability.OutcomeTooLarge)
			return SubmissionResult{}, ErrImageTooLarge
		}
		s.outcome(observability.OutcomeStagingFault)
		return SubmissionResult{}, fmt.Errorf("stage upload: %w", err)
	}
	defer s.discard(file)
	s.metrics.ObserveStage("staged", start)

	log := s.log.With().Str("token", file.Token).Str("category", category).Logger()
	log.Debug().Int64("bytes", file.Size).Str("ext", file.Ext).Msg("submission staged")

	start = time.Now()
	point, err := s.extractor.Extract(file.Path)
	s.metrics.ObserveStage("authenticity", start)
	if err != nil {
		log.Info().Err(err).Msg("submission rejected: no gps metadata")
		s.discard(file)
		s.outcome(observability.OutcomeNoGPS)
		return SubmissionResult{}, ErrNoGPSMetadata
	}
	log = log.With().Float64("lat", point.Lat).Float64("lon", point.Lon).Logger()
	log.Debug().Msg("authenticity checked")

	start = time.Now()
	nearby, err := s.complaints.FindNearbyActive(ctx, point, s.cfg.DuplicateRadiusMeters)
	s.metrics.ObserveStage("dedup", start)
	if err != nil {
		log.Error().Err(err).Msg("proximity query failed")
		s.discard(file)
		s.outcome(observability.OutcomePersistFault)
		return SubmissionResult{}, fmt.Errorf("%w: proximity query: %v", ErrPersistence, err)
	}
	for _, match := range nearby {
		if match.Category == category {
			log.Info().Int64("existing_id", match.ID).Float64("distance_m", match.DistanceMeters).Msg("duplicate submission")
			s.discard(file)
			s.outcome(observability.OutcomeDuplicate)
			return SubmissionResult{}, ErrDuplicate
		}
	}
	log.Debug().Int("nearby", len(nearby)).Msg("dedup checked")

	start = time.Now()
	result := SubmissionResult{Location: point, WardName: UnknownWard}
	ward, found, err := s.wards.FindContainingWard(ctx, point)
	s.metrics.ObserveStage("routing", start)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("ward lookup failed, continuing unrouted")
	case found:
		id := ward.ID
		result.WardID = &id
		result.WardName = ward.Name
	}
	log.Debug().Str("ward", result.WardName).Msg("routed")

	start = time.Now()
	compressed, err := s.transcoder.Compress(file.Path, s.cfg.Quality)
	s.metrics.ObserveStage("compression", start)
	if err != nil {
		log.Warn().Err(err).Msg("compression failed, uploading staged bytes")
		s.metrics.Compression.WithLabelValues(observability.CompressionFailed).Inc()
	} else {
		result.Compressed = true
		s.metrics.Compression.WithLabelValues(observability.CompressionApplied).Inc()
		if saved := compressed.SavedBytes(); saved > 0 {
			s.metrics.BytesSaved.Add(float64(saved))
		}
		log.Debug().Int64("original", compressed.OriginalBytes).Int64("compressed", compressed.CompressedBytes).Msg("compressed")
	}

	start = time.Now()
	object, err := s.upload(ctx, file, contentType)
	s.metrics.ObserveStage("upload", start)
	if err != nil {
		log.Error().Err(err).Msg("upload failed")
		s.discard(file)
		s.outcome(observability.OutcomeStorageFault)
		return SubmissionResult{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	result.ImageURL = object.URL
	log = log.With().Str("object", object.Key).Logger()
	log.Debug().Msg("uploaded")

	s.discard(file)

	start = time.Now()
	id, err := s.complaints.InsertComplaint(ctx, models.NewComplaint{
		ImageURL:    object.URL,
		Description: description,
		Category:    category,
		Location:    point,
		WardID:      result.WardID,
	})
	s.metrics.ObserveStage("persist", start)
	if err != nil {
		s.compensate(ctx, log, object, err)
		if errors.Is(err, repository.ErrDuplicateComplaint) {
			log.Info().Msg("duplicate detected at insert")
			s.outcome(observability.OutcomeDuplicate)
			return SubmissionResult{}, ErrDuplicate
		}
		log.Error().Err(err).Msg("insert failed")
		s.outcome(observability.OutcomePersistFault)
		return SubmissionResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	result.ComplaintID = id

	if err := s.tasks.Publish(ctx, queue.TaskComplaintCreated, map[string]any{
		"complaintId": strconv.FormatInt(id, 10),
		"category":    category,
		"ward":        result.WardName,
		"imageUrl":    object.URL,
	}); err != nil {
		log.Warn().Err(err).Msg("enqueue complaint.created failed")
	}

	s.outcome(observability.OutcomeSuccess)
	log.Info().Int64("complaint_id", id).Str("ward", result.WardName).Bool("compressed", result.Compressed).Msg("complaint persisted")
	return result, nil
}

func (s *SubmissionService) upload(ctx context.Context, file staging.File, contentType string) (storage.Object, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return storage.Object{}, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return storage.Object{}, fmt.Errorf("stat staged file: %w", err)
	}

	return s.blobs.Upload(ctx, storage.UploadInput{
		Body:        f,
		Size:        info.Size(),
		Ext:         file.Ext,
		ContentType: contentType,
	})
}

// compensate removes a blob whose complaint row was never written. If the
// store refuses, the key is handed to the worker.
func (s *SubmissionService) compensate(ctx context.Context, log zerolog.Logger, object storage.Object, cause error) {
	err := s.blobs.Remove(ctx, object.Key)
	if err == nil {
		log.Debug().Msg("orphaned blob removed")
		return
	}
	log.Warn().Err(err).Msg("compensating blob delete failed")
	s.metrics.OrphanedBlobs.Inc()

	if err := s.tasks.Publish(ctx, queue.TaskBlobRemove, map[string]any{
		"bucket": object.Bucket,
		"key":    object.Key,
		"reason": cause.Error(),
	}); err != nil {
		log.Error().Err(err).Str("key", object.Key).Msg("orphaned blob left behind")
	}
}

func (s *SubmissionService) discard(file staging.File) {
	if err := s.staging.Remove(file); err != nil {
		s.log.Error().Err(err).Str("path", file.Path).Msg("remove staging file failed")
	}
}

func (s *SubmissionService) outcome(outcome string) {
	s.metrics.Submissions.WithLabelValues(outcome).Inc()
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
