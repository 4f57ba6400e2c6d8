package handler

import (
	"context"

	"coin100/internal/domain"
	"coin100/internal/period"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// CoinQueryService is the read side the HTTP surface exposes.
type CoinQueryService interface {
	GetCoins(ctx context.Context, start, end, token string) ([]*domain.Coin, period.Window, error)
	GetCoinBySymbol(ctx context.Context, symbol, start, end, token string) ([]*domain.Coin, period.Window, error)
	GetTotalMarketCap(ctx context.Context, start, end, token string) ([]*domain.TotalMarketCap, period.Window, error)
}

// ChainService prepares rebase transactions and reads contract metrics.
// Optional; nil disables the /api/rebase routes.
type ChainService interface {
	PrepareRebase(ctx context.Context, newMarketCap, walletAddress string) (*RebaseTx, error)
	Metrics(ctx context.Context) (*RebaseMetrics, error)
}

// RebaseTx is calldata for a client-side wallet to sign and send.
type RebaseTx struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Data     string `json:"data"`
	GasLimit string `json:"gasLimit"`
}

// RebaseMetrics is the contract's current supply state, ether-denominated.
type RebaseMetrics struct {
	TotalSupply     string `json:"totalSupply"`
	LastMarketCap   string `json:"lastMarketCap"`
	GonsPerFragment string `json:"gonsPerFragment"`
}

type Handler struct {
	tracer       trace.Tracer
	coinService  CoinQueryService
	chainService ChainService
	apiKey       string
}

func New(tracer trace.Tracer, coinService CoinQueryService, apiKey string) *Handler {
	return &Handler{
		tracer:      tracer,
		coinService: coinService,
		apiKey:      apiKey,
	}
}

// SetChainService enables the rebase routes.
func (h *Handler) SetChainService(svc ChainService) {
	h.chainService = svc
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(h.apiKey))
	api.GET("/coins", h.GetCoins)
	api.GET("/coins/symbol/:symbol", h.GetCoinBySymbol)
	api.GET("/coins/market/total", h.GetTotalMarketCap)

	if h.chainService != nil {
		api.POST("/rebase/execute", h.ExecuteRebase)
		api.GET("/rebase/metrics", h.GetRebaseMetrics)
	}
}
