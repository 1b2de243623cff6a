// Package related enriches detection results with similarly named
// currencies, ranked by embedding cosine similarity.
package related

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"coin-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const embedBatchSize = 256

// Embedder turns a batch of texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type entry struct {
	name   string
	slug   string
	vector []float64
}

// Service answers "which currencies are similar to this one" from embeddings
// of the catalog's display names. A nil embedder disables the service: every
// lookup returns an empty list.
type Service struct {
	tracer   trace.Tracer
	embedder Embedder
	limit    int

	mu      sync.RWMutex
	entries []entry
	byName  map[string]int
}

func NewService(tracer trace.Tracer, embedder Embedder, limit int) *Service {
	if limit <= 0 {
		limit = 10
	}
	return &Service{
		tracer:   tracer,
		embedder: embedder,
		limit:    limit,
		byName:   map[string]int{},
	}
}

// WarmCatalog embeds every catalog currency name. Called after each catalog
// rebuild; the previous vectors stay live until the swap.
func (s *Service) WarmCatalog(ctx context.Context, currencies []domain.Currency) error {
	if s.embedder == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "related.warm-catalog")
	defer span.End()

	entries := make([]entry, 0, len(currencies))
	for start := 0; start < len(currencies); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(currencies) {
			end = len(currencies)
		}
		batch := currencies[start:end]

		names := make([]string, len(batch))
		for i, cur := range batch {
			names[i] = cur.Name
		}
		vectors, err := s.embedder.Embed(ctx, names)
		if err != nil {
			return fmt.Errorf("embed catalog names: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed catalog names: got %d vectors for %d names", len(vectors), len(batch))
		}
		for i, cur := range batch {
			entries = append(entries, entry{name: cur.Name, slug: cur.Slug, vector: vectors[i]})
		}
	}

	byName := make(map[string]int, len(entries))
	for i, e := range entries {
		byName[strings.ToLower(e.name)] = i
	}

	s.mu.Lock()
	s.entries = entries
	s.byName = byName
	s.mu.Unlock()
	return nil
}

// Related returns up to limit currencies most similar to name. Unknown names
// and a cold cache yield an empty list, never an error the caller must act on.
func (s *Service) Related(ctx context.Context, name string) ([]domain.RelatedCoin, error) {
	if s.embedder == nil {
		return nil, nil
	}

	_, span := s.tracer.Start(ctx, "related.lookup")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	target := s.entries[i]

	type scored struct {
		entry entry
		sim   float64
	}
	candidates := make([]scored, 0, len(s.entries))
	for j, e := range s.entries {
		if j == i {
			continue
		}
		candidates = append(candidates, scored{entry: e, sim: cosine(target.vector, e.vector)})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].sim > candidates[b].sim
	})

	limit := s.limit
	if limit > len(candidates) {
		limit = len(candidates)
	}
	coins := make([]domain.RelatedCoin, 0, limit)
	for _, c := range candidates[:limit] {
		coins = append(coins, domain.RelatedCoin{
			Name: c.entry.name,
			URL:  "https://coinmarketcap.com/currencies/" + c.entry.slug + "/",
		})
	}
	return coins, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
