package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PriceWriter stores USD prices read later by the price chain.
type PriceWriter interface {
	SetPrice(ctx context.Context, chainID model.ChainID, token []byte, usd decimal.Decimal, ts time.Time) error
}

type PriceHandler struct {
	store PriceWriter
	codec *chain.Codec
}

func NewPriceHandler(store PriceWriter, codec *chain.Codec) *PriceHandler {
	return &PriceHandler{store: store, codec: codec}
}

type setPriceRequest struct {
	ChainID uint64          `json:"chain_id" binding:"required"`
	Token   string          `json:"token" binding:"required"`
	USD     decimal.Decimal `json:"usd"`
}

// Set seeds or overrides a cached price by hand, for tokens the feeder does
// not cover.
func (h *PriceHandler) Set(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if !req.USD.IsPositive() {
		c.Error(apperrors.NewInvalidRequest("usd must be positive"))
		return
	}
	chainID := model.ChainID(req.ChainID)
	token, err := h.codec.EncodeAddress(chainID, req.Token)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInvalidRequest, "invalid token address", err))
		return
	}

	if err := h.store.SetPrice(c.Request.Context(), chainID, token, req.USD, time.Now()); err != nil {
		c.Error(apperrors.New(apperrors.ErrUpstream, "failed to store price", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chain_id": req.ChainID,
		"token":    h.codec.FormatAddress(chainID, token),
		"usd":      req.USD,
	})
}
