// Package version carries the service metadata reported by /status.
package version

const (
	Name        = "coin-radar"
	Description = "Finds cryptocurrency mentions in text and returns their recent prices and charts."
	Version     = "1.0.0"
	ReleaseDate = "2026-08-30"
)
