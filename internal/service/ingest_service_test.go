package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coin100/internal/domain"
)

func TestIngestRun(t *testing.T) {
	t.Parallel()

	provider := &mockIngestProvider{coins: []*domain.Coin{
		{ID: "bitcoin", Symbol: "btc", MarketCap: 1_900_000_000_000},
		{ID: "ethereum", Symbol: "eth", MarketCap: 420_000_000_000},
	}}
	coins := &mockCoinWriter{}
	caps := &mockCapRepo{}
	cache := newFakeRedis()

	svc := NewIngestService(testTracer, provider, coins, caps, cache)
	svc.now = func() time.Time { return testNow }

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if coins.upsertCalls != 1 || len(coins.lastUpsert) != 2 {
		t.Fatalf("expected one upsert of 2 coins, got %d/%d", coins.upsertCalls, len(coins.lastUpsert))
	}
	if caps.insertCalls != 1 || caps.lastTotal != "2320000000000" {
		t.Fatalf("unexpected aggregate insert: %d %s", caps.insertCalls, caps.lastTotal)
	}
	if _, ok := cache.data[latestCoinKeyPrefix+"btc"]; !ok {
		t.Fatal("latest btc row not cached")
	}
	if _, ok := cache.data[latestCoinKeyPrefix+"eth"]; !ok {
		t.Fatal("latest eth row not cached")
	}
}

func TestIngestRunFetchFailure(t *testing.T) {
	t.Parallel()

	provider := &mockIngestProvider{err: errors.New("upstream down")}
	coins := &mockCoinWriter{}

	svc := NewIngestService(testTracer, provider, coins, &mockCapRepo{}, nil)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if coins.upsertCalls != 0 {
		t.Fatal("nothing should be written when the fetch fails")
	}
}

func TestIngestRunEmptySnapshot(t *testing.T) {
	t.Parallel()

	svc := NewIngestService(testTracer, &mockIngestProvider{}, &mockCoinWriter{}, &mockCapRepo{}, nil)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for empty snapshot")
	}
}

func TestIngestRunUpsertFailureSkipsAggregate(t *testing.T) {
	t.Parallel()

	provider := &mockIngestProvider{coins: []*domain.Coin{{ID: "bitcoin", Symbol: "btc"}}}
	coins := &mockCoinWriter{err: errors.New("db down")}
	caps := &mockCapRepo{}

	svc := NewIngestService(testTracer, provider, coins, caps, nil)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if caps.insertCalls != 0 {
		t.Fatal("aggregate row should not be written after a failed upsert")
	}
}

func TestSumMarketCaps(t *testing.T) {
	t.Parallel()

	coins := []*domain.Coin{
		{MarketCap: 9_000_000_000_000_000_000},
		{MarketCap: 9_000_000_000_000_000_000},
		{MarketCap: 1},
	}
	// The sum exceeds int64 range; big.Int keeps it exact.
	if got := sumMarketCaps(coins); got != "18000000000000000001" {
		t.Fatalf("unexpected sum: %s", got)
	}
}

type mockIngestProvider struct {
	coins []*domain.Coin
	err   error
}

func (m *mockIngestProvider) FetchTopCoins(ctx context.Context) ([]*domain.Coin, error) {
	return m.coins, m.err
}

type mockCoinWriter struct {
	err         error
	upsertCalls int
	lastUpsert  []*domain.Coin
}

func (m *mockCoinWriter) UpsertCoins(ctx context.Context, coins []*domain.Coin) error {
	m.upsertCalls++
	m.lastUpsert = coins
	return m.err
}
