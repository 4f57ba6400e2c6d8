package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"coin100/internal/domain"
	"coin100/internal/period"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const latestCoinKeyPrefix = "coin:latest:"

type CoinRepository interface {
	GetCoinsInWindow(ctx context.Context, from, to time.Time) ([]*domain.Coin, error)
	GetLatestCoins(ctx context.Context) ([]*domain.Coin, error)
	GetCoinsBySymbolInWindow(ctx context.Context, symbol string, from, to time.Time) ([]*domain.Coin, error)
	GetLatestCoinBySymbol(ctx context.Context, symbol string) (*domain.Coin, error)
}

type MarketCapRepository interface {
	GetTotalMarketCapInWindow(ctx context.Context, from, to time.Time) ([]*domain.TotalMarketCap, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// CoinService answers read queries against the stored observations. When a
// requested window holds no rows it substitutes the most recent snapshot
// (the window in the response still reflects what was asked for); only a
// fully empty store yields a not-found error.
type CoinService struct {
	tracer        trace.Tracer
	coins         CoinRepository
	caps          MarketCapRepository
	redis         RedisClient
	defaultPeriod time.Duration
	now           func() time.Time
}

func NewCoinService(
	tracer trace.Tracer,
	coins CoinRepository,
	caps MarketCapRepository,
	redisClient RedisClient,
	defaultPeriod time.Duration,
) *CoinService {
	if defaultPeriod <= 0 {
		defaultPeriod = period.DefaultLookback
	}
	return &CoinService{
		tracer:        tracer,
		coins:         coins,
		caps:          caps,
		redis:         redisClient,
		defaultPeriod: defaultPeriod,
		now:           time.Now,
	}
}

// GetCoins returns every observation in the resolved window, falling back
// to the latest snapshot per coin when the window is empty.
func (s *CoinService) GetCoins(ctx context.Context, start, end, token string) ([]*domain.Coin, period.Window, error) {
	ctx, span := s.tracer.Start(ctx, "coin-service.get-coins")
	defer span.End()

	w, err := period.Resolve(start, end, token, s.now(), s.defaultPeriod)
	if err != nil {
		return nil, period.Window{}, err
	}

	coins, err := s.coins.GetCoinsInWindow(ctx, w.Start, w.End)
	if err != nil {
		return nil, w, fmt.Errorf("query coins in window: %w", err)
	}
	if len(coins) > 0 {
		return coins, w, nil
	}

	coins, err = s.coins.GetLatestCoins(ctx)
	if err != nil {
		return nil, w, fmt.Errorf("query latest coins: %w", err)
	}
	if len(coins) == 0 {
		return nil, w, domain.ErrNoData
	}
	return coins, w, nil
}

// GetCoinBySymbol returns one coin's observations in the resolved window.
// An empty window falls back to the single most recent row for the symbol,
// served from Redis when the ingestion cache is warm.
func (s *CoinService) GetCoinBySymbol(ctx context.Context, symbol, start, end, token string) ([]*domain.Coin, period.Window, error) {
	ctx, span := s.tracer.Start(ctx, "coin-service.get-coin-by-symbol")
	defer span.End()

	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, period.Window{}, domain.ErrMissingSymbol
	}

	w, err := period.Resolve(start, end, token, s.now(), s.defaultPeriod)
	if err != nil {
		return nil, period.Window{}, err
	}

	coins, err := s.coins.GetCoinsBySymbolInWindow(ctx, symbol, w.Start, w.End)
	if err != nil {
		return nil, w, fmt.Errorf("query coin %s in window: %w", symbol, err)
	}
	if len(coins) > 0 {
		return coins, w, nil
	}

	latest, err := s.latestCoin(ctx, symbol)
	if err != nil {
		return nil, w, fmt.Errorf("query latest coin %s: %w", symbol, err)
	}
	if latest == nil {
		return nil, w, domain.ErrCoinNotFound
	}
	return []*domain.Coin{latest}, w, nil
}

// GetTotalMarketCap returns aggregate observations in the resolved window.
// There is no fallback; an empty window is a valid empty answer.
func (s *CoinService) GetTotalMarketCap(ctx context.Context, start, end, token string) ([]*domain.TotalMarketCap, period.Window, error) {
	ctx, span := s.tracer.Start(ctx, "coin-service.get-total-market-cap")
	defer span.End()

	w, err := period.Resolve(start, end, token, s.now(), s.defaultPeriod)
	if err != nil {
		return nil, period.Window{}, err
	}

	caps, err := s.caps.GetTotalMarketCapInWindow(ctx, w.Start, w.End)
	if err != nil {
		return nil, w, fmt.Errorf("query total market cap: %w", err)
	}
	return caps, w, nil
}

func (s *CoinService) latestCoin(ctx context.Context, symbol string) (*domain.Coin, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, latestCoinKeyPrefix+symbol).Bytes()
		if err == nil {
			coin := &domain.Coin{}
			if err := json.Unmarshal(cached, coin); err == nil {
				return coin, nil
			}
			log.Printf("corrupt cache entry for %s, falling back to postgres", symbol)
		} else if err != redis.Nil {
			log.Printf("redis cache read error: %v", err)
		}
	}

	return s.coins.GetLatestCoinBySymbol(ctx, symbol)
}
