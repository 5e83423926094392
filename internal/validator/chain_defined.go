package validator

import (
	"context"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
)

// ChainDefined rejects orders whose give or take chain is not configured.
func ChainDefined() Initializer {
	return Static(NewFunc("chain_defined", func(_ context.Context, order *model.Order, vc *Context) (bool, error) {
		giveOK := vc.Providers.HasChain(order.Give.ChainID)
		takeOK := vc.Providers.HasChain(order.Take.ChainID)
		result := giveOK && takeOK
		vc.Logger.Info("validator result",
			slog.Bool("result", result),
			slog.Uint64("give_chain_id", uint64(order.Give.ChainID)),
			slog.Bool("give_chain_defined", giveOK),
			slog.Uint64("take_chain_id", uint64(order.Take.ChainID)),
			slog.Bool("take_chain_defined", takeOK),
		)
		return result, nil
	}), ScopeTake)
}

// DisableFulfill rejects every order. Placed in a chain's destination list
// it keeps the chain configured while excluding it from fulfillment.
func DisableFulfill() Initializer {
	return Static(NewFunc("disable_fulfill", func(_ context.Context, order *model.Order, vc *Context) (bool, error) {
		vc.Logger.Info("validator result",
			slog.Bool("result", false),
			slog.Uint64("take_chain_id", uint64(order.Take.ChainID)),
		)
		return false, nil
	}), ScopeTake)
}
