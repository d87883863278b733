package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	geojson "github.com/paulmach/go.geojson"
)

// ListWards serves ward boundaries as a GeoJSON FeatureCollection.
func (h HandlerSet) ListWards(c *gin.Context) {
	wards, err := h.wards.ListWards(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list wards failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, w := range wards {
		feature := geojson.NewFeature(w.Geometry)
		feature.ID = w.ID
		feature.SetProperty("name", w.Name)
		fc.AddFeature(feature)
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		h.log.Error().Err(err).Msg("encode wards failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
