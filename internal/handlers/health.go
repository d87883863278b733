package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Storage     string `json:"storage"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    h.ping(ctx, "database", h.db),
		Cache:       "disabled",
		Storage:     h.ping(ctx, "storage", h.store),
		Environment: h.cfg.Environment,
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Cache = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	status := http.StatusOK
	if resp.Database != "ok" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h HandlerSet) ping(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		h.log.Error().Err(err).Str("dependency", name).Msg("ping failed")
		return "error"
	}
	return "ok"
}

// Root is the static liveness probe.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "Online",
		"version": "1.0",
		"message": "Complaint API Backend is running.",
	})
}
