package repository

import (
	"context"
	"time"

	"coin100/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createCoinsTable = `
CREATE TABLE IF NOT EXISTS coins (
    id                                TEXT             NOT NULL,
    symbol                            TEXT             NOT NULL,
    name                              TEXT,
    image                             TEXT,
    current_price                     DOUBLE PRECISION,
    market_cap                        BIGINT,
    market_cap_rank                   INTEGER,
    fully_diluted_valuation           BIGINT,
    total_volume                      BIGINT,
    high_24h                          DOUBLE PRECISION,
    low_24h                           DOUBLE PRECISION,
    price_change_24h                  DOUBLE PRECISION,
    price_change_percentage_24h       DOUBLE PRECISION,
    market_cap_change_24h             BIGINT,
    market_cap_change_percentage_24h  DOUBLE PRECISION,
    circulating_supply                DOUBLE PRECISION,
    total_supply                      DOUBLE PRECISION,
    max_supply                        DOUBLE PRECISION,
    ath                               DOUBLE PRECISION,
    ath_change_percentage             DOUBLE PRECISION,
    ath_date                          TIMESTAMPTZ,
    atl                               DOUBLE PRECISION,
    atl_change_percentage             DOUBLE PRECISION,
    atl_date                          TIMESTAMPTZ,
    last_updated                      TIMESTAMPTZ      NOT NULL,
    currency                          TEXT             NOT NULL DEFAULT 'usd',
    PRIMARY KEY (id, last_updated)
);

CREATE INDEX IF NOT EXISTS idx_coins_symbol_last_updated
    ON coins (symbol, last_updated);
`

const coinColumns = `id, symbol, name, image, current_price, market_cap, market_cap_rank,
	fully_diluted_valuation, total_volume, high_24h, low_24h, price_change_24h,
	price_change_percentage_24h, market_cap_change_24h, market_cap_change_percentage_24h,
	circulating_supply, total_supply, max_supply, ath, ath_change_percentage, ath_date,
	atl, atl_change_percentage, atl_date, last_updated, currency`

const upsertCoinSQL = `INSERT INTO coins (` + coinColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	ON CONFLICT (id, last_updated) DO UPDATE SET
	    symbol = EXCLUDED.symbol,
	    name = EXCLUDED.name,
	    image = EXCLUDED.image,
	    current_price = EXCLUDED.current_price,
	    market_cap = EXCLUDED.market_cap,
	    market_cap_rank = EXCLUDED.market_cap_rank,
	    fully_diluted_valuation = EXCLUDED.fully_diluted_valuation,
	    total_volume = EXCLUDED.total_volume,
	    high_24h = EXCLUDED.high_24h,
	    low_24h = EXCLUDED.low_24h,
	    price_change_24h = EXCLUDED.price_change_24h,
	    price_change_percentage_24h = EXCLUDED.price_change_percentage_24h,
	    market_cap_change_24h = EXCLUDED.market_cap_change_24h,
	    market_cap_change_percentage_24h = EXCLUDED.market_cap_change_percentage_24h,
	    circulating_supply = EXCLUDED.circulating_supply,
	    total_supply = EXCLUDED.total_supply,
	    max_supply = EXCLUDED.max_supply,
	    ath = EXCLUDED.ath,
	    ath_change_percentage = EXCLUDED.ath_change_percentage,
	    ath_date = EXCLUDED.ath_date,
	    atl = EXCLUDED.atl,
	    atl_change_percentage = EXCLUDED.atl_change_percentage,
	    atl_date = EXCLUDED.atl_date,
	    currency = EXCLUDED.currency`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type CoinRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewCoinRepository(pool PgxPool, tracer trace.Tracer) *CoinRepository {
	return &CoinRepository{pool: pool, tracer: tracer}
}

func (r *CoinRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "coin-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createCoinsTable)
	return err
}

// UpsertCoins writes one snapshot batch. Re-observing the same (id,
// last_updated) pair overwrites the row; latest write wins.
func (r *CoinRepository) UpsertCoins(ctx context.Context, coins []*domain.Coin) error {
	if len(coins) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "coin-repo.upsert-coins")
	defer span.End()

	batch := &pgx.Batch{}
	for _, c := range coins {
		batch.Queue(upsertCoinSQL,
			c.ID, c.Symbol, c.Name, c.Image, c.CurrentPrice, c.MarketCap, c.MarketCapRank,
			c.FullyDilutedValuation, c.TotalVolume, c.High24h, c.Low24h, c.PriceChange24h,
			c.PriceChangePercentage24h, c.MarketCapChange24h, c.MarketCapChangePercentage24h,
			c.CirculatingSupply, c.TotalSupply, c.MaxSupply, c.ATH, c.ATHChangePercentage,
			c.ATHDate, c.ATL, c.ATLChangePercentage, c.ATLDate, c.LastUpdated, c.Currency,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range coins {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetCoinsInWindow returns all observations inside [from, to], best rank
// first.
func (r *CoinRepository) GetCoinsInWindow(ctx context.Context, from, to time.Time) ([]*domain.Coin, error) {
	_, span := r.tracer.Start(ctx, "coin-repo.get-coins-in-window")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+coinColumns+`
		 FROM coins
		 WHERE last_updated >= $1 AND last_updated <= $2
		 ORDER BY market_cap_rank ASC, last_updated ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCoins(rows)
}

// GetLatestCoins returns the most recent observation per coin id across all
// time, newest snapshot first, then best rank.
func (r *CoinRepository) GetLatestCoins(ctx context.Context) ([]*domain.Coin, error) {
	_, span := r.tracer.Start(ctx, "coin-repo.get-latest-coins")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+coinColumns+` FROM (
		     SELECT DISTINCT ON (id) `+coinColumns+`
		     FROM coins
		     ORDER BY id, last_updated DESC
		 ) latest
		 ORDER BY last_updated DESC, market_cap_rank ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCoins(rows)
}

// GetCoinsBySymbolInWindow returns a single coin's observations inside
// [from, to] in chronological order. Symbols are stored lowercase.
func (r *CoinRepository) GetCoinsBySymbolInWindow(ctx context.Context, symbol string, from, to time.Time) ([]*domain.Coin, error) {
	_, span := r.tracer.Start(ctx, "coin-repo.get-coins-by-symbol")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+coinColumns+`
		 FROM coins
		 WHERE symbol = $1 AND last_updated >= $2 AND last_updated <= $3
		 ORDER BY last_updated ASC`,
		symbol, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCoins(rows)
}

// GetLatestCoinBySymbol returns the single most recent observation for a
// symbol, or nil when the symbol has never been observed.
func (r *CoinRepository) GetLatestCoinBySymbol(ctx context.Context, symbol string) (*domain.Coin, error) {
	_, span := r.tracer.Start(ctx, "coin-repo.get-latest-coin-by-symbol")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+coinColumns+`
		 FROM coins
		 WHERE symbol = $1
		 ORDER BY last_updated DESC
		 LIMIT 1`,
		symbol,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coins, err := scanCoins(rows)
	if err != nil {
		return nil, err
	}
	if len(coins) == 0 {
		return nil, nil
	}
	return coins[0], nil
}

func scanCoins(rows pgx.Rows) ([]*domain.Coin, error) {
	var coins []*domain.Coin
	for rows.Next() {
		c := &domain.Coin{}
		if err := rows.Scan(
			&c.ID, &c.Symbol, &c.Name, &c.Image, &c.CurrentPrice, &c.MarketCap, &c.MarketCapRank,
			&c.FullyDilutedValuation, &c.TotalVolume, &c.High24h, &c.Low24h, &c.PriceChange24h,
			&c.PriceChangePercentage24h, &c.MarketCapChange24h, &c.MarketCapChangePercentage24h,
			&c.CirculatingSupply, &c.TotalSupply, &c.MaxSupply, &c.ATH, &c.ATHChangePercentage,
			&c.ATHDate, &c.ATL, &c.ATLChangePercentage, &c.ATLDate, &c.LastUpdated, &c.Currency,
		); err != nil {
			return nil, err
		}
		coins = append(coins, c)
	}
	return coins, rows.Err()
}
