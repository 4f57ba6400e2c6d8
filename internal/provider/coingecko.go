package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coin100/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 2 * time.Second
)

// APIError is a non-2xx response from the CoinGecko API.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko api error %d: %s", e.StatusCode, string(e.Body))
}

// IsRetryable reports whether the error is a rate-limit or server-side
// failure worth retrying.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CoinGeckoProvider fetches the top-100 market snapshot from the CoinGecko
// API, with built-in rate limiting and bounded retry on 429/5xx.
type CoinGeckoProvider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	tracer       trace.Tracer
	limiter      *RateLimiter
	maxRetries   int
	retryBackoff time.Duration
}

// NewCoinGeckoProvider creates a provider. The free API allows roughly 10
// calls per minute, so the limiter refills one token every 7.5 seconds.
func NewCoinGeckoProvider(tracer trace.Tracer, apiKey string) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      coingeckoBaseURL,
		apiKey:       apiKey,
		tracer:       tracer,
		limiter:      NewRateLimiter(8, 7500*time.Millisecond),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
}

// marketRow is the shape of one /coins/markets entry.
type marketRow struct {
	ID                           string     `json:"id"`
	Symbol                       string     `json:"symbol"`
	Name                         string     `json:"name"`
	Image                        string     `json:"image"`
	CurrentPrice                 float64    `json:"current_price"`
	MarketCap                    int64      `json:"market_cap"`
	MarketCapRank                int        `json:"market_cap_rank"`
	FullyDilutedValuation        *int64     `json:"fully_diluted_valuation"`
	TotalVolume                  int64      `json:"total_volume"`
	High24h                      float64    `json:"high_24h"`
	Low24h                       float64    `json:"low_24h"`
	PriceChange24h               float64    `json:"price_change_24h"`
	PriceChangePercentage24h     float64    `json:"price_change_percentage_24h"`
	MarketCapChange24h           int64      `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h float64    `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            float64    `json:"circulating_supply"`
	TotalSupply                  *float64   `json:"total_supply"`
	MaxSupply                    *float64   `json:"max_supply"`
	ATH                          float64    `json:"ath"`
	ATHChangePercentage          float64    `json:"ath_change_percentage"`
	ATHDate                      *time.Time `json:"ath_date"`
	ATL                          float64    `json:"atl"`
	ATLChangePercentage          float64    `json:"atl_change_percentage"`
	ATLDate                      *time.Time `json:"atl_date"`
	LastUpdated                  *time.Time `json:"last_updated"`
}

// FetchTopCoins fetches the top-100 coins by market cap in a single call.
func (p *CoinGeckoProvider) FetchTopCoins(ctx context.Context) ([]*domain.Coin, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-top-coins")
	defer span.End()

	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", "100")
	query.Set("page", "1")

	body, err := p.doWithRetry(ctx, "/coins/markets", query)
	if err != nil {
		return nil, fmt.Errorf("fetch top coins: %w", err)
	}

	var rows []marketRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse top coins: %w", err)
	}

	now := time.Now().UTC()
	coins := make([]*domain.Coin, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		coin := &domain.Coin{
			ID:                           row.ID,
			Symbol:                       strings.ToLower(row.Symbol),
			Name:                         row.Name,
			Image:                        row.Image,
			CurrentPrice:                 row.CurrentPrice,
			MarketCap:                    row.MarketCap,
			MarketCapRank:                row.MarketCapRank,
			FullyDilutedValuation:        row.FullyDilutedValuation,
			TotalVolume:                  row.TotalVolume,
			High24h:                      row.High24h,
			Low24h:                       row.Low24h,
			PriceChange24h:               row.PriceChange24h,
			PriceChangePercentage24h:     row.PriceChangePercentage24h,
			MarketCapChange24h:           row.MarketCapChange24h,
			MarketCapChangePercentage24h: row.MarketCapChangePercentage24h,
			CirculatingSupply:            row.CirculatingSupply,
			TotalSupply:                  row.TotalSupply,
			MaxSupply:                    row.MaxSupply,
			ATH:                          row.ATH,
			ATHChangePercentage:          row.ATHChangePercentage,
			ATHDate:                      row.ATHDate,
			ATL:                          row.ATL,
			ATLChangePercentage:          row.ATLChangePercentage,
			ATLDate:                      row.ATLDate,
			LastUpdated:                  now,
			Currency:                     "usd",
		}
		if row.LastUpdated != nil {
			coin.LastUpdated = row.LastUpdated.UTC()
		}
		coins = append(coins, coin)
	}

	return coins, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := p.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff and jitter.
// Non-retryable errors fail immediately; retryable ones are retried up to
// maxRetries times before the last error is surfaced.
func (p *CoinGeckoProvider) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := p.retryBackoff

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			log.Printf("coingecko retry %d for %s after %v", attempt, path, jitter)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := p.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
