package repository

import (
	"context"
	"time"

	"coin100/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createTotalCapTable = `
CREATE TABLE IF NOT EXISTS total_top100_cap (
    id                BIGSERIAL     PRIMARY KEY,
    timestamp         TIMESTAMPTZ   NOT NULL,
    total_market_cap  NUMERIC(30,0) NOT NULL,
    created_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_total_top100_cap_timestamp
    ON total_top100_cap (timestamp);
`

// MarketCapRepository stores aggregate top-100 capitalization observations.
type MarketCapRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewMarketCapRepository(pool PgxPool, tracer trace.Tracer) *MarketCapRepository {
	return &MarketCapRepository{pool: pool, tracer: tracer}
}

func (r *MarketCapRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "marketcap-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createTotalCapTable)
	return err
}

// InsertTotalMarketCap records one aggregate observation. The value is
// passed as a decimal string; NUMERIC(30,0) exceeds int64 range.
func (r *MarketCapRepository) InsertTotalMarketCap(ctx context.Context, timestamp time.Time, totalMarketCap string) error {
	_, span := r.tracer.Start(ctx, "marketcap-repo.insert-total")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO total_top100_cap (timestamp, total_market_cap) VALUES ($1, $2)`,
		timestamp, totalMarketCap,
	)
	return err
}

// GetTotalMarketCapInWindow returns aggregate observations inside
// [from, to] in chronological order. An empty result is not an error.
func (r *MarketCapRepository) GetTotalMarketCapInWindow(ctx context.Context, from, to time.Time) ([]*domain.TotalMarketCap, error) {
	_, span := r.tracer.Start(ctx, "marketcap-repo.get-total-in-window")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, timestamp, total_market_cap::text
		 FROM total_top100_cap
		 WHERE timestamp >= $1 AND timestamp <= $2
		 ORDER BY timestamp ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []*domain.TotalMarketCap
	for rows.Next() {
		m := &domain.TotalMarketCap{}
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.TotalMarketCap); err != nil {
			return nil, err
		}
		caps = append(caps, m)
	}
	return caps, rows.Err()
}
