package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"civicsnap/internal/config"
	"civicsnap/internal/models"
	"civicsnap/internal/service"
)

type Submitter interface {
	Submit(ctx context.Context, input service.SubmissionInput) (service.SubmissionResult, error)
}

type ComplaintReader interface {
	GetComplaint(ctx context.Context, id int64) (models.Complaint, error)
	ListComplaints(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
}

type WardLister interface {
	ListWards(ctx context.Context) ([]models.WardBoundary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP layer reads from. Cache may be
// nil when the service runs without redis.
type Dependencies struct {
	Submissions Submitter
	Complaints  ComplaintReader
	Wards       WardLister
	Database    Pinger
	Storage     Pinger
	Cache       *redis.Client
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	submissions Submitter
	complaints  ComplaintReader
	wards       WardLister
	db          Pinger
	store       Pinger
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		submissions: deps.Submissions,
		complaints:  deps.Complaints,
		wards:       deps.Wards,
		db:          deps.Database,
		store:       deps.Storage,
		cache:       deps.Cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/report", h.SubmitReport)
		v1.GET("/reports", h.ListReports)
		v1.GET("/reports/:id", h.GetReport)
		v1.GET("/wards", h.ListWards)
	}
}
