package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/shopspring/decimal"
)

var ErrPriceNotFound = errors.New("price not found")

// PriceSource is one place a USD price can come from.
type PriceSource interface {
	USDPrice(ctx context.Context, chainID model.ChainID, token []byte) (decimal.Decimal, error)
}

// PriceService asks each source in turn and returns the first price found.
// A source that fails is skipped, but its error is reported if no later
// source has the price.
type PriceService struct {
	sources []PriceSource
}

func NewPriceService(sources ...PriceSource) *PriceService {
	filtered := make([]PriceSource, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &PriceService{sources: filtered}
}

func (s *PriceService) USDPrice(ctx context.Context, chainID model.ChainID, token []byte) (decimal.Decimal, error) {
	var lastErr error
	for _, src := range s.sources {
		price, err := src.USDPrice(ctx, chainID, token)
		if err == nil {
			if !price.IsPositive() {
				lastErr = fmt.Errorf("non-positive price %s on chain %d", price.String(), chainID)
				continue
			}
			return price, nil
		}
		if !errors.Is(err, ErrPriceNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return decimal.Zero, lastErr
	}
	return decimal.Zero, fmt.Errorf("%w: chain %d", ErrPriceNotFound, chainID)
}

// StaticPrices serves fixed prices from configuration, typically for
// stablecoins.
type StaticPrices struct {
	prices map[model.ChainID]map[string]decimal.Decimal
}

func NewStaticPrices(codec *chain.Codec, cfgs []config.PriceConfig) (*StaticPrices, error) {
	sp := &StaticPrices{prices: make(map[model.ChainID]map[string]decimal.Decimal)}
	for _, c := range cfgs {
		id := model.ChainID(c.ChainID)
		token, err := codec.EncodeAddress(id, c.Token)
		if err != nil {
			return nil, fmt.Errorf("static price: %w", err)
		}
		if sp.prices[id] == nil {
			sp.prices[id] = make(map[string]decimal.Decimal)
		}
		sp.prices[id][string(token)] = decimal.NewFromFloat(c.USD)
	}
	return sp, nil
}

func (s *StaticPrices) USDPrice(_ context.Context, chainID model.ChainID, token []byte) (decimal.Decimal, error) {
	if p, ok := s.prices[chainID][string(token)]; ok {
		return p, nil
	}
	return decimal.Zero, ErrPriceNotFound
}
