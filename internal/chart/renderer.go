// Package chart renders hosted price charts for detected currencies.
package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coin-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ErrRenderTimeout is returned when the rendering backend does not answer
// within its configured deadline.
var ErrRenderTimeout = errors.New("chart render timed out")

// Renderer turns a price series into a hosted chart URL. Implementations
// must respect their timeout and never block the caller indefinitely.
type Renderer interface {
	Render(ctx context.Context, title string, series []domain.PricePoint) (string, error)
}

// Disabled is a Renderer that renders nothing. Selected via configuration
// when no chart backend should be used.
type Disabled struct{}

func (Disabled) Render(ctx context.Context, title string, series []domain.PricePoint) (string, error) {
	return "", nil
}

// FromConfig builds the configured Renderer variant.
func FromConfig(backend string, timeout time.Duration, tracer trace.Tracer) Renderer {
	switch backend {
	case "disabled":
		return Disabled{}
	default:
		return NewQuickChart(timeout, tracer)
	}
}

// Caption builds the human-readable chart title for a currency's series.
func Caption(name string, series []domain.PricePoint) string {
	if len(series) == 0 {
		return name + " Closing Prices"
	}

	start, stop := series[0].Date, series[0].Date
	for _, p := range series[1:] {
		if p.Date.Before(start) {
			start = p.Date
		}
		if p.Date.After(stop) {
			stop = p.Date
		}
	}
	return fmt.Sprintf("%s Closing Prices from %s to %s",
		name, start.Format("January 2, 2006"), stop.Format("January 2, 2006"))
}
