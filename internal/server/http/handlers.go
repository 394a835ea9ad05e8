package http

import (
	"net/http"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func RegisterRoutes(r *gin.Engine, deps Deps) {
	v1 := r.Group("/api/v1")
	v1.POST("/endpoints/:endpoint/invoke", handleInvoke(deps))
}

// handleInvoke forwards the feature payload to the model backend and logs the
// full inference event, custom attributes included, to the capture sink.
func handleInvoke(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpointName := c.Param("endpoint")
		metricTags := []string{"endpoint:" + endpointName}

		var req InvokeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metric.Incr("invoke_bad_request", metricTags)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		prediction, err := deps.Model.Predict(c.Request.Context(), endpointName, req.Features)
		if err != nil {
			log.Error().Err(err).Str("endpoint", endpointName).Msg("Model backend call failed")
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "model backend error"})
			return
		}

		rec := capture.Record{
			EventID:          uuid.NewString(),
			EndpointName:     endpointName,
			InferenceTime:    time.Now().UTC(),
			CustomAttributes: c.GetHeader(metadata.HTTPHeader),
			Input:            req.Features,
			Output:           prediction,
		}
		if err := deps.Capture(rec); err != nil {
			// Capture failure must not fail the inference, the monitor run
			// simply sees fewer records.
			log.Error().Err(err).Str("event_id", rec.EventID).Msg("Failed to capture inference record")
			metric.Incr("capture_dropped", metricTags)
		}

		metric.Incr("invoke_success", metricTags)
		c.JSON(http.StatusOK, InvokeResponse{EventID: rec.EventID, Prediction: prediction})
	}
}
