package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"coin100/internal/period"
)

type Config struct {
	Port   int
	APIKey string

	DatabaseURL string
	RedisURL    string

	CoinGeckoAPIKey string
	PollInterval    time.Duration

	// DefaultQueryPeriod is the lookback applied when a request carries
	// neither start/end nor a period token.
	DefaultQueryPeriod time.Duration

	Web3ProviderURL string
	ContractAddress string

	CloudflareAPIToken string
	CloudflareZoneID   string
	DNSDomain          string
}

func Load() *Config {
	cfg := &Config{
		APIKey:             os.Getenv("COIN100_API_KEY"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CoinGeckoAPIKey:    os.Getenv("COIN_GECKO_API_KEY"),
		Web3ProviderURL:    os.Getenv("WEB3_PROVIDER_URL"),
		ContractAddress:    os.Getenv("CONTRACT_ADDRESS"),
		CloudflareAPIToken: os.Getenv("CLOUDFLARE_API_TOKEN"),
		CloudflareZoneID:   os.Getenv("CLOUDFLARE_ZONE_ID"),
		DNSDomain:          os.Getenv("DNS_DOMAIN"),
	}

	if cfg.APIKey == "" {
		log.Println("Warning: COIN100_API_KEY not set, API requests will be rejected")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL()
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: no database configuration found (DATABASE_URL or DB_* vars)")
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.Port = 5555
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}

	cfg.PollInterval = 5 * time.Minute
	if v := strings.TrimSpace(os.Getenv("COINGECKO_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}

	cfg.DefaultQueryPeriod = period.DefaultLookback
	if v := strings.TrimSpace(os.Getenv("DEFAULT_QUERY_PERIOD")); v != "" {
		if period.IsValid(v) {
			cfg.DefaultQueryPeriod = period.ToDuration(v, period.DefaultLookback)
		} else {
			log.Printf("Warning: invalid DEFAULT_QUERY_PERIOD=%q, using %v", v, cfg.DefaultQueryPeriod)
		}
	}

	return cfg
}

// buildDatabaseURL assembles a connection string from discrete DB_* vars,
// for deployments that do not supply DATABASE_URL directly.
func buildDatabaseURL() string {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if host == "" || user == "" || name == "" {
		return ""
	}

	port := 5432
	if v := os.Getenv("DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = n
		}
	}

	sslMode := "prefer"
	if strings.EqualFold(os.Getenv("DB_SSL"), "true") {
		sslMode = "require"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		user,
		url.QueryEscape(os.Getenv("DB_PASSWORD")),
		host,
		port,
		name,
		sslMode,
	)
}
