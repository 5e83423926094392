package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
)

// OrderState requires that the reported order id matches the id derived from
// the order fields, and that the order is still open on the source chain.
func OrderState() Initializer {
	return Static(NewFunc("order_state", func(ctx context.Context, order *model.Order, vc *Context) (bool, error) {
		computed := order.CalculateID()
		if computed != order.ID {
			vc.Logger.Info("validator result",
				slog.Bool("result", false),
				slog.String("reported_id", order.ID.Hex()),
				slog.String("computed_id", computed.Hex()),
			)
			return false, nil
		}

		status, err := vc.Chain.GiveOrderStatus(ctx, order.Give.ChainID, order.ID)
		if err != nil {
			return false, fmt.Errorf("give order status on chain %d: %w", order.Give.ChainID, err)
		}
		result := status == model.OrderStatusCreated
		vc.Logger.Info("validator result",
			slog.Bool("result", result),
			slog.Uint64("give_chain_id", uint64(order.Give.ChainID)),
			slog.String("status", status.String()),
		)
		return result, nil
	}), ScopeGive)
}
