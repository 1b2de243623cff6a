package handler

import (
	"context"

	"coin-radar/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Detector runs the detection pipeline for one request.
type Detector interface {
	Detect(ctx context.Context, text string, limit int) ([]domain.ResultRecord, error)
}

type Handler struct {
	tracer       trace.Tracer
	detector     Detector
	defaultLimit int
}

func New(tracer trace.Tracer, detector Detector, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 3
	}
	return &Handler{
		tracer:       tracer,
		detector:     detector,
		defaultLimit: defaultLimit,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/", h.Status)
	r.GET("/status", h.Status)
	r.POST("/detect", h.Detect)
	r.GET("/detect", h.DetectMethodNotSupported)
	r.OPTIONS("/detect", h.DetectPreflight)
}
