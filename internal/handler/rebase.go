package handler

import (
	"errors"
	"log"
	"net/http"

	"coin100/internal/domain"

	"github.com/gin-gonic/gin"
)

type rebaseRequest struct {
	NewMarketCap  string `json:"newMarketCap"`
	WalletAddress string `json:"walletAddress"`
}

// ExecuteRebase godoc
// @Summary      Prepare a rebase transaction
// @Description  Verifies the wallet's admin rights and returns unsigned rebase calldata for it to sign
// @Tags         rebase
// @Accept       json
// @Produce      json
// @Param        body  body  rebaseRequest  true  "Rebase parameters"
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/rebase/execute [post]
func (h *Handler) ExecuteRebase(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.execute-rebase")
	defer span.End()

	var req rebaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NewMarketCap == "" || req.WalletAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required parameters: newMarketCap or walletAddress",
		})
		return
	}

	tx, err := h.chainService.PrepareRebase(ctx, req.NewMarketCap, req.WalletAddress)
	if err != nil {
		if errors.Is(err, domain.ErrNotAdmin) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Wallet does not have admin rights to execute rebase",
			})
			return
		}
		log.Printf("rebase preparation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal Server Error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"transaction": tx,
	})
}

// GetRebaseMetrics godoc
// @Summary      Read contract supply metrics
// @Tags         rebase
// @Produce      json
// @Param        x-api-key  header  string  true  "API key"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/rebase/metrics [get]
func (h *Handler) GetRebaseMetrics(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.rebase-metrics")
	defer span.End()

	metrics, err := h.chainService.Metrics(ctx)
	if err != nil {
		log.Printf("reading rebase metrics failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal Server Error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"metrics": metrics,
	})
}
