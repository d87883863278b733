package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"civicsnap/internal/models"
	"civicsnap/internal/repository"
)

type complaintResponse struct {
	ID          int64     `json:"id"`
	ImageURL    string    `json:"image_url"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	WardID      *int64    `json:"ward_id"`
	WardName    *string   `json:"ward_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toComplaintResponse(c models.Complaint) complaintResponse {
	return complaintResponse{
		ID:          c.ID,
		ImageURL:    c.ImageURL,
		Description: c.Description,
		Category:    c.Category,
		Latitude:    c.Location.Lat,
		Longitude:   c.Location.Lon,
		WardID:      c.WardID,
		WardName:    c.WardName,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
	}
}

func (h HandlerSet) ListReports(c *gin.Context) {
	limit := 50
	offset := 0
	page := 1

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if p := c.Query("page"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v < 1 || v-1 > math.MaxInt/limit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page"})
			return
		}
		page = v
		offset = (v - 1) * limit
	}

	filter := models.ComplaintFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	}
	if ward := c.Query("ward"); ward != "" {
		v, err := strconv.ParseInt(ward, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_ward"})
			return
		}
		filter.WardID = &v
	}

	complaints, err := h.complaints.ListComplaints(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("list complaints failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	items := make([]complaintResponse, 0, len(complaints))
	for _, complaint := range complaints {
		items = append(items, toComplaintResponse(complaint))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"page":    page,
		"perPage": limit,
	})
}

func (h HandlerSet) GetReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	complaint, err := h.complaints.GetComplaint(c.Request.Context(), id)
	if errors.Is(err, repository.ErrComplaintNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("complaint_id", id).Msg("get complaint failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, toComplaintResponse(complaint))
}
