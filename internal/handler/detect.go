package handler

import (
	"errors"
	"log"
	"net/http"

	"coin-radar/internal/catalog"
	"coin-radar/internal/detect"

	"github.com/gin-gonic/gin"
)

type detectRequest struct {
	Text  string `json:"text"`
	Limit *int   `json:"limit"`
}

// Detect godoc
// @Summary      Detect cryptocurrency mentions
// @Description  Scans the submitted text for cryptocurrency mentions and returns ranked results with price history and charts
// @Tags         detect
// @Accept       json
// @Produce      json
// @Param        request  body      detectRequest  true  "Text to scan and optional result limit"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /detect [post]
func (h *Handler) Detect(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.Detect")
	defer span.End()

	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Make request with JSON object.",
		})
		return
	}
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Provide a `text` parameter.",
		})
		return
	}

	limit := h.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	results, err := h.detector.Detect(ctx, req.Text, limit)
	if err != nil {
		switch {
		case errors.Is(err, detect.ErrInvalidLimit):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Provide a positive `limit` parameter.",
			})
		case errors.Is(err, catalog.ErrNotReady):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Currency catalog is not loaded yet. Try again shortly.",
			})
		default:
			log.Printf("detect failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal error while searching text.",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Searched `text` data successfully.",
		"results": results,
	})
}

// DetectMethodNotSupported godoc
// @Summary      Reject GET on the detect endpoint
// @Tags         detect
// @Produce      json
// @Failure      400  {object}  map[string]interface{}
// @Router       /detect [get]
func (h *Handler) DetectMethodNotSupported(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "GET method not supported. Use POST instead.",
	})
}

// DetectPreflight answers CORS preflight probes on the detect endpoint.
func (h *Handler) DetectPreflight(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Endpoint accepts CORS request.",
	})
}
