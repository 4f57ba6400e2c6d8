package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"coin100/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// latestCoinCacheTTL is roughly twice the default poll cadence, so a warm
// cache survives one missed run.
const latestCoinCacheTTL = 10 * time.Minute

type CoinProvider interface {
	FetchTopCoins(ctx context.Context) ([]*domain.Coin, error)
}

type CoinWriter interface {
	UpsertCoins(ctx context.Context, coins []*domain.Coin) error
}

type MarketCapWriter interface {
	InsertTotalMarketCap(ctx context.Context, timestamp time.Time, totalMarketCap string) error
}

// IngestService is the sole writer of the data model: it fetches one
// top-100 snapshot, upserts every coin row, records the summed market cap,
// and refreshes the per-symbol latest cache.
type IngestService struct {
	tracer   trace.Tracer
	provider CoinProvider
	coins    CoinWriter
	caps     MarketCapWriter
	redis    RedisClient
	now      func() time.Time
}

func NewIngestService(
	tracer trace.Tracer,
	provider CoinProvider,
	coins CoinWriter,
	caps MarketCapWriter,
	redisClient RedisClient,
) *IngestService {
	return &IngestService{
		tracer:   tracer,
		provider: provider,
		coins:    coins,
		caps:     caps,
		redis:    redisClient,
		now:      time.Now,
	}
}

// Run performs one ingestion pass.
func (s *IngestService) Run(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "ingest-service.run")
	defer span.End()

	coins, err := s.provider.FetchTopCoins(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if len(coins) == 0 {
		return fmt.Errorf("provider returned empty snapshot")
	}

	if err := s.coins.UpsertCoins(ctx, coins); err != nil {
		return fmt.Errorf("upsert coins: %w", err)
	}

	total := sumMarketCaps(coins)
	if err := s.caps.InsertTotalMarketCap(ctx, s.now().UTC(), total); err != nil {
		return fmt.Errorf("insert total market cap: %w", err)
	}

	s.cacheLatest(ctx, coins)

	log.Printf("ingested %d coins, total market cap %s", len(coins), total)
	return nil
}

// sumMarketCaps adds up the snapshot's capitalizations as a big integer;
// the summed top-100 figure does not fit the float64 mantissa reliably.
func sumMarketCaps(coins []*domain.Coin) string {
	total := new(big.Int)
	for _, c := range coins {
		total.Add(total, big.NewInt(c.MarketCap))
	}
	return total.String()
}

func (s *IngestService) cacheLatest(ctx context.Context, coins []*domain.Coin) {
	if s.redis == nil {
		return
	}
	for _, c := range coins {
		data, err := json.Marshal(c)
		if err != nil {
			continue
		}
		if err := s.redis.Set(ctx, latestCoinKeyPrefix+c.Symbol, data, latestCoinCacheTTL).Err(); err != nil {
			log.Printf("redis cache write error for %s: %v", c.Symbol, err)
		}
	}
}
