package handler

import (
	"net/http"
	"strconv"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gin-gonic/gin"
)

type DecisionHandler struct {
	svc *service.DecisionLog
}

func NewDecisionHandler(svc *service.DecisionLog) *DecisionHandler {
	return &DecisionHandler{svc: svc}
}

func (h *DecisionHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	orderID := ""
	if raw := c.Query("order_id"); raw != "" {
		id, err := chain.NormalizeOrderID(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
		orderID = id
	}

	records, err := h.svc.List(c.Request.Context(), orderID, limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}
