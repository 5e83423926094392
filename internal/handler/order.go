package handler

import (
	"net/http"
	"time"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gin-gonic/gin"
)

const maxBatchSize = 500

type OrderHandler struct {
	svc   *service.AdmissionController
	codec *chain.Codec
}

func NewOrderHandler(svc *service.AdmissionController, codec *chain.Codec) *OrderHandler {
	return &OrderHandler{svc: svc, codec: codec}
}

// Evaluate runs one order through admission. A rejection is a normal
// response carrying admitted=false and the reason.
func (h *OrderHandler) Evaluate(c *gin.Context) {
	var req model.OrderPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	order, err := h.codec.DecodeOrder(req)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, "invalid order", err))
		return
	}

	dec := h.svc.Evaluate(c.Request.Context(), model.Candidate{Order: order, Confirmed: req.Confirmed})
	c.JSON(http.StatusOK, dec)
}

type batchRequest struct {
	Orders []model.OrderPayload `json:"orders" binding:"required"`
}

// EvaluateBatch evaluates many orders concurrently. Orders that fail to
// decode are rejected individually; the rest are still evaluated.
func (h *OrderHandler) EvaluateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if len(req.Orders) > maxBatchSize {
		c.Error(apperrors.NewInvalidRequest("too many orders in batch"))
		return
	}

	decisions := make([]model.Decision, len(req.Orders))
	cands := make([]model.Candidate, 0, len(req.Orders))
	slots := make([]int, 0, len(req.Orders))
	for i, p := range req.Orders {
		order, err := h.codec.DecodeOrder(p)
		if err != nil {
			decisions[i] = model.Decision{
				OrderID:   p.OrderID,
				Reason:    model.ReasonInvalidOrder,
				GiveChain: model.ChainID(p.GiveChainID),
				TakeChain: model.ChainID(p.TakeChainID),
				At:        time.Now().UTC(),
			}
			continue
		}
		cands = append(cands, model.Candidate{Order: order, Confirmed: p.Confirmed})
		slots = append(slots, i)
	}

	for j, dec := range h.svc.EvaluateBatch(c.Request.Context(), cands) {
		decisions[slots[j]] = dec
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}
