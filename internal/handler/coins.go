package handler

import (
	"errors"
	"log"
	"net/http"

	"coin100/internal/domain"
	"coin100/internal/period"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetCoins godoc
// @Summary      List coin observations in a time window
// @Description  Returns all stored top-100 observations in the requested window, or the latest snapshot when the window is empty
// @Tags         coins
// @Produce      json
// @Param        period  query  string  false  "Lookback period (e.g. 5m, 1h, 1d)"
// @Param        start   query  string  false  "Window start (ISO 8601)"
// @Param        end     query  string  false  "Window end (ISO 8601)"
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/coins [get]
func (h *Handler) GetCoins(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-coins")
	defer span.End()

	coins, w, err := h.coinService.GetCoins(ctx, c.Query("start"), c.Query("end"), c.Query("period"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, windowResponse(w, len(coins), coins))
}

// GetCoinBySymbol godoc
// @Summary      Get one coin's observations in a time window
// @Description  Returns a coin's observations in the requested window, or its single latest row when the window is empty
// @Tags         coins
// @Produce      json
// @Param        symbol  path   string  true   "Coin symbol (e.g. btc)"
// @Param        period  query  string  false  "Lookback period (e.g. 5m, 1h, 1d)"
// @Param        start   query  string  false  "Window start (ISO 8601)"
// @Param        end     query  string  false  "Window end (ISO 8601)"
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/coins/symbol/{symbol} [get]
func (h *Handler) GetCoinBySymbol(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-coin-by-symbol")
	defer span.End()

	symbol := c.Param("symbol")
	span.SetAttributes(attribute.String("symbol", symbol))

	coins, w, err := h.coinService.GetCoinBySymbol(ctx, symbol, c.Query("start"), c.Query("end"), c.Query("period"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, windowResponse(w, len(coins), coins))
}

// GetTotalMarketCap godoc
// @Summary      Get aggregate market cap observations
// @Description  Returns total top-100 market cap rows in the requested window; an empty window is a valid empty answer
// @Tags         coins
// @Produce      json
// @Param        period  query  string  false  "Lookback period (e.g. 5m, 1h, 1d)"
// @Param        start   query  string  false  "Window start (ISO 8601)"
// @Param        end     query  string  false  "Window end (ISO 8601)"
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/coins/market/total [get]
func (h *Handler) GetTotalMarketCap(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-total-market-cap")
	defer span.End()

	caps, w, err := h.coinService.GetTotalMarketCap(ctx, c.Query("start"), c.Query("end"), c.Query("period"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if caps == nil {
		caps = []*domain.TotalMarketCap{}
	}

	c.JSON(http.StatusOK, windowResponse(w, len(caps), caps))
}

func windowResponse(w period.Window, count int, data any) gin.H {
	resp := gin.H{
		"success":   true,
		"dateRange": gin.H{"start": w.Start, "end": w.End},
		"count":     count,
		"data":      data,
	}
	if w.Period != "" {
		resp["period"] = w.Period
	}
	return resp
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDateFormat):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid date format. Use ISO 8601 timestamps (e.g. 2024-01-01T00:00:00Z)",
		})
	case errors.Is(err, domain.ErrInvalidPeriodFormat):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid period format. Use a number followed by m, h, d, w or y (e.g. 5m, 1h)",
		})
	case errors.Is(err, domain.ErrMissingSymbol):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Coin symbol is required",
		})
	case errors.Is(err, domain.ErrCoinNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "No data found for the specified coin in the given date range",
		})
	case errors.Is(err, domain.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "No coin data available",
		})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal Server Error",
		})
	}
}
