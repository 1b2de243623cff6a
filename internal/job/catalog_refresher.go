package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"coin-radar/internal/catalog"
	"coin-radar/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ListingSource fetches the full currency listing from the upstream market API.
type ListingSource interface {
	Listings(ctx context.Context) ([]domain.Currency, error)
}

// CatalogWarmer is notified after every successful catalog rebuild so that
// derived caches (embeddings etc.) can be refreshed alongside.
type CatalogWarmer interface {
	WarmCatalog(ctx context.Context, currencies []domain.Currency) error
}

// CatalogRefresher periodically rebuilds the in-memory currency catalog from
// the upstream listing. The first build is synchronous so the service never
// starts serving with an empty catalog silently.
type CatalogRefresher struct {
	tracer     trace.Tracer
	source     ListingSource
	holder     *catalog.Holder
	lex        catalog.Lookup
	exclusions []string
	warmer     CatalogWarmer
	interval   time.Duration
}

func NewCatalogRefresher(tracer trace.Tracer, source ListingSource, holder *catalog.Holder, lex catalog.Lookup, exclusions []string, warmer CatalogWarmer, refreshHours int) *CatalogRefresher {
	if refreshHours <= 0 {
		refreshHours = 24
	}
	return &CatalogRefresher{
		tracer:     tracer,
		source:     source,
		holder:     holder,
		lex:        lex,
		exclusions: exclusions,
		warmer:     warmer,
		interval:   time.Duration(refreshHours) * time.Hour,
	}
}

// RefreshOnce fetches the listing and swaps in a freshly built catalog.
func (r *CatalogRefresher) RefreshOnce(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "job.CatalogRefresh")
	defer span.End()

	listing, err := r.source.Listings(ctx)
	if err != nil {
		return fmt.Errorf("fetching currency listings: %w", err)
	}

	cat := catalog.Build(listing, r.lex, r.exclusions)
	r.holder.Set(cat)
	log.Printf("catalog refreshed: %d currencies (%d listed upstream)", cat.Len(), len(listing))

	if r.warmer != nil {
		if err := r.warmer.WarmCatalog(ctx, cat.Currencies()); err != nil {
			log.Printf("catalog warm error: %v", err)
		}
	}
	return nil
}

// Start performs the initial build and then refreshes on a ticker. Blocks
// until ctx is cancelled. The initial build error is returned so main can
// decide whether to abort startup.
func (r *CatalogRefresher) Start(ctx context.Context) error {
	log.Println("Catalog refresher starting...")

	if err := r.RefreshOnce(ctx); err != nil {
		return fmt.Errorf("initial catalog build: %w", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Catalog refresher stopped")
			return nil
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				log.Printf("catalog refresh error: %v", err)
			}
		}
	}
}
