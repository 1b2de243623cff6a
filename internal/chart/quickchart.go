package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coin-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const quickChartCreateURL = "https://quickchart.io/chart/create"

// QuickChart renders line charts through the quickchart.io hosting API and
// returns the hosted image URL.
type QuickChart struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	tracer  trace.Tracer
}

func NewQuickChart(timeout time.Duration, tracer trace.Tracer) *QuickChart {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QuickChart{
		client:  &http.Client{Timeout: timeout},
		baseURL: quickChartCreateURL,
		timeout: timeout,
		tracer:  tracer,
	}
}

func (q *QuickChart) Render(ctx context.Context, title string, series []domain.PricePoint) (string, error) {
	ctx, span := q.tracer.Start(ctx, "chart.quickchart-render")
	defer span.End()

	if len(series) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	labels := make([]string, 0, len(series))
	closes := make([]float64, 0, len(series))
	for _, p := range series {
		labels = append(labels, p.Date.Format("2006-01-02"))
		closes = append(closes, p.Close)
	}

	payload := map[string]any{
		"chart": map[string]any{
			"type": "line",
			"data": map[string]any{
				"labels": labels,
				"datasets": []map[string]any{{
					"label":       title,
					"data":        closes,
					"fill":        false,
					"borderColor": "#2192ff",
				}},
			},
			"options": map[string]any{
				"title": map[string]any{"display": true, "text": title},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chart config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrRenderTimeout
		}
		return "", fmt.Errorf("quickchart request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("quickchart error %d: %s", resp.StatusCode, string(raw))
	}

	var result struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse quickchart response: %w", err)
	}
	if !result.Success || result.URL == "" {
		return "", fmt.Errorf("quickchart returned no URL")
	}
	return result.URL, nil
}
