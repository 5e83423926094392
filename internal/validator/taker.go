package validator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
)

// WhitelistedTaker requires the order's allowed destination taker to be the
// address this deployment fulfills from on the take chain.
func WhitelistedTaker() Initializer {
	return &whitelistedTaker{}
}

type whitelistedTaker struct{}

func (w *whitelistedTaker) Name() string { return "whitelisted_taker" }

func (w *whitelistedTaker) Scope() Scope { return ScopeTake }

func (w *whitelistedTaker) Init(_ context.Context, ic *InitContext) (Validator, error) {
	taker, ok := ic.Providers.TakerAddress(ic.ChainID)
	if !ok {
		return nil, fmt.Errorf("whitelisted_taker: no taker address configured for chain %d", ic.ChainID)
	}
	return &boundTaker{chainID: ic.ChainID, taker: taker}, nil
}

type boundTaker struct {
	chainID model.ChainID
	taker   []byte
}

func (b *boundTaker) Name() string { return "whitelisted_taker" }

func (b *boundTaker) Evaluate(_ context.Context, order *model.Order, vc *Context) (bool, error) {
	result := order.Take.ChainID == b.chainID && bytes.Equal(order.AllowedTakerDst, b.taker)
	codec := vc.Providers.Codec()
	vc.Logger.Info("validator result",
		slog.Bool("result", result),
		slog.Uint64("take_chain_id", uint64(order.Take.ChainID)),
		slog.String("allowed_taker", codec.FormatAddress(order.Take.ChainID, order.AllowedTakerDst)),
		slog.String("taker", codec.FormatAddress(b.chainID, b.taker)),
	)
	return result, nil
}
