package detect

import (
	"errors"
	"sort"

	"coin-radar/internal/domain"
)

// ErrInvalidLimit is returned by Rank for a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// Rank orders findings by descending span count and truncates to limit.
// The sort is stable, so currencies that tied on count keep the order in
// which they first matched during the scan (catalog order). Fewer than limit
// findings is fine; an empty input yields an empty selection.
func Rank(findings []domain.Finding, limit int) ([]domain.Finding, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	ranked := make([]domain.Finding, len(findings))
	copy(ranked, findings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Spans) > len(ranked[j].Spans)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
