package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"civicsnap/internal/media/sniffer"
	"civicsnap/internal/service"
)

func (h HandlerSet) SubmitReport(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "Rejected", "reason": "Image exceeds upload limit"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	defer file.Close()

	result, err := h.submissions.Submit(c.Request.Context(), service.SubmissionInput{
		File:        file,
		Filename:    filepath.Base(header.Filename),
		ContentType: sniffer.MimeTypeFromHTTP(http.Header(header.Header)),
		Category:    c.PostForm("category"),
		Description: c.PostForm("description"),
	})
	if err != nil {
		h.writeSubmissionError(c, err)
		return
	}

	compression := "Applied"
	if !result.Compressed {
		compression = "Failed/Not Applied"
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":         "Success",
		"complaint_id":   result.ComplaintID,
		"routed_to_ward": result.WardName,
		"forensics":      "Verified",
		"compression":    compression,
		"image_url":      result.ImageURL,
	})
}

func (h HandlerSet) writeSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
	case errors.Is(err, service.ErrNoGPSMetadata):
		c.JSON(http.StatusBadRequest, gin.H{"status": "Rejected", "reason": "Image lacks GPS metadata"})
	case errors.Is(err, service.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "Rejected", "reason": "Image exceeds upload limit"})
	case errors.Is(err, service.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"status": "Duplicate", "message": "This issue has already been reported nearby."})
	case errors.Is(err, service.ErrStorage):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload to cloud storage: " + err.Error()})
	case errors.Is(err, service.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence_failed"})
	default:
		h.log.Error().Err(err).Msg("submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
