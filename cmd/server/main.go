package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coin100/internal/cache"
	"coin100/internal/chain"
	"coin100/internal/config"
	"coin100/internal/db"
	"coin100/internal/handler"
	"coin100/internal/job"
	"coin100/internal/provider"
	"coin100/internal/repository"
	"coin100/internal/service"
	"coin100/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "coin100/docs"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	connectPostgresFunc      = db.Connect
	connectRedisFunc         = cache.Connect
	initTracerFunc           = tracing.InitTracer
	newCoinRepoFunc          = repository.NewCoinRepository
	newMarketCapRepoFunc     = repository.NewMarketCapRepository
	newCoinGeckoProviderFunc = func(tracer trace.Tracer, apiKey string) service.CoinProvider {
		return provider.NewCoinGeckoProvider(tracer, apiKey)
	}
	newCoinServiceFunc     = service.NewCoinService
	newIngestServiceFunc   = service.NewIngestService
	newPollerFunc          = job.NewPoller
	startPollerFunc        = func(p *job.Poller, ctx context.Context) { go p.Start(ctx) }
	newChainServiceFunc    = chain.NewService
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Coin100 API
// @version         1.0
// @description     Top-100 cryptocurrency market data API backed by CoinGecko.

// @host      localhost:5555
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	pool, err := connectPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	// Redis is a cache, not a dependency; run degraded without it.
	var redisClient service.RedisClient
	if rdb, err := connectRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("redis unavailable, per-symbol cache disabled: %v", err)
	} else {
		redisClient = rdb
	}

	coinRepo := newCoinRepoFunc(pool, tracer)
	capRepo := newMarketCapRepoFunc(pool, tracer)
	if pool != nil {
		if err := coinRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		if err := capRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	cgProvider := newCoinGeckoProviderFunc(tracer, cfg.CoinGeckoAPIKey)
	coinService := newCoinServiceFunc(tracer, coinRepo, capRepo, redisClient, cfg.DefaultQueryPeriod)
	ingestService := newIngestServiceFunc(tracer, cgProvider, coinRepo, capRepo, redisClient)

	// Poller fetches the top-100 snapshot on an interval, stopped by ctx cancel.
	poller := newPollerFunc(tracer, ingestService, cfg.PollInterval)
	startPollerFunc(poller, ctx)

	h := newHandlerFunc(tracer, coinService, cfg.APIKey)

	if cfg.Web3ProviderURL != "" && cfg.ContractAddress != "" {
		chainService, err := newChainServiceFunc(tracer, cfg.Web3ProviderURL, cfg.ContractAddress)
		if err != nil {
			log.Printf("rebase routes disabled: %v", err)
		} else {
			h.SetChainService(chainService)
		}
	}

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coin100"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "x-api-key"},
		MaxAge:       12 * time.Hour,
	}))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Printf("Coin100 API listening on :%d", cfg.Port)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
