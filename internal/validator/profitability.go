package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var bpsDenominator = decimal.NewFromInt(10_000)

// Profitability requires giveUSD / takeUSD >= 1 + minBps/10000.
func Profitability(minBps int) Initializer {
	required := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(minBps)).Div(bpsDenominator))
	return Static(&profitability{required: required}, ScopeTake)
}

type profitability struct {
	required decimal.Decimal
}

func (p *profitability) Name() string { return "profitability" }

func (p *profitability) Evaluate(ctx context.Context, order *model.Order, vc *Context) (bool, error) {
	var (
		givePrice, takePrice decimal.Decimal
		giveDec, takeDec     uint8
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		givePrice, err = vc.Prices.USDPrice(gctx, order.Give.ChainID, order.Give.Token)
		return wrapLookup("give price", err)
	})
	g.Go(func() (err error) {
		takePrice, err = vc.Prices.USDPrice(gctx, order.Take.ChainID, order.Take.Token)
		return wrapLookup("take price", err)
	})
	g.Go(func() (err error) {
		giveDec, err = vc.Providers.TokenDecimals(gctx, order.Give.ChainID, order.Give.Token)
		return wrapLookup("give decimals", err)
	})
	g.Go(func() (err error) {
		takeDec, err = vc.Providers.TokenDecimals(gctx, order.Take.ChainID, order.Take.Token)
		return wrapLookup("take decimals", err)
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	giveUSD := USDWorth(order.Give, giveDec, givePrice)
	takeUSD := USDWorth(order.Take, takeDec, takePrice)
	if !takeUSD.IsPositive() {
		return false, fmt.Errorf("take side worth %s USD, cannot compute ratio", takeUSD.String())
	}

	ratio := giveUSD.Div(takeUSD)
	result := ratio.GreaterThanOrEqual(p.required)
	vc.Logger.Info("validator result",
		slog.Bool("result", result),
		slog.String("give_usd", giveUSD.String()),
		slog.String("take_usd", takeUSD.String()),
		slog.String("ratio", ratio.String()),
		slog.String("required_ratio", p.required.String()),
	)
	return result, nil
}

// USDWorth converts a raw token amount into USD given its decimals and the
// USD price of one whole token.
func USDWorth(ta model.TokenAmount, decimals uint8, price decimal.Decimal) decimal.Decimal {
	if ta.Amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(ta.Amount, -int32(decimals)).Mul(price)
}

func wrapLookup(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s lookup: %w", what, err)
}
