package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	svc *service.AdmissionController
}

func NewBudgetHandler(svc *service.AdmissionController) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

func (h *BudgetHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Budget())
}

// Release drops an order's reservation by hand, e.g. after an out-of-band
// confirmation the feed missed.
func (h *BudgetHandler) Release(c *gin.Context) {
	orderID, err := chain.NormalizeOrderID(c.Param("id"))
	if err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	h.svc.Release(orderID)
	c.JSON(http.StatusOK, gin.H{"released": orderID, "budget": h.svc.Budget()})
}

func (h *BudgetHandler) Slippage(c *gin.Context) {
	chainID, err := strconv.ParseUint(c.Query("chain_id"), 10, 64)
	if err != nil {
		c.Error(apperrors.NewInvalidRequest("chain_id must be an unsigned integer"))
		return
	}
	tokenIn, tokenOut := c.Query("token_in"), c.Query("token_out")
	if tokenIn == "" || tokenOut == "" {
		c.Error(apperrors.NewInvalidRequest("token_in and token_out are required"))
		return
	}

	bps, err := h.svc.Slippage(model.ChainID(chainID), tokenIn, tokenOut)
	if err != nil {
		// unresolved and invalid-address errors are mapped by ErrorHandler
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chain_id":     chainID,
		"token_in":     tokenIn,
		"token_out":    tokenOut,
		"slippage_bps": bps,
	})
}
