package repository

import (
	"context"
	"time"

	"coin-radar/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createPricePointsTable = `
CREATE TABLE IF NOT EXISTS price_points (
    slug        TEXT        NOT NULL,
    date        TIMESTAMPTZ NOT NULL,
    open        NUMERIC     NOT NULL,
    high        NUMERIC     NOT NULL,
    low         NUMERIC     NOT NULL,
    close       NUMERIC     NOT NULL,
    volume      NUMERIC     NOT NULL,
    market_cap  NUMERIC     NOT NULL,
    PRIMARY KEY (slug, date)
);

CREATE INDEX IF NOT EXISTS idx_price_points_slug_date
    ON price_points (slug, date DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PriceRepository stores daily price points fetched from the market-data
// provider so repeated detections of the same currency don't refetch the
// same 90-day window upstream.
type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPricePointsTable)
	return err
}

func (r *PriceRepository) UpsertPoints(ctx context.Context, slug string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.upsert-points")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_points (slug, date, open, high, low, close, volume, market_cap)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (slug, date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume,
			     market_cap = EXCLUDED.market_cap`,
			slug, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, p.MarketCap,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range points {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetRange returns the stored points for slug between from and to, oldest
// first.
func (r *PriceRepository) GetRange(ctx context.Context, slug string, from, to time.Time) ([]domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date, open, high, low, close, volume, market_cap
		 FROM price_points
		 WHERE slug = $1 AND date >= $2 AND date <= $3
		 ORDER BY date ASC`,
		slug, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.MarketCap); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
