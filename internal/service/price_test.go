package service

import (
	"context"
	"errors"
	"testing"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPrices(t *testing.T) {
	sp, err := NewStaticPrices(chain.NewCodec(nil), []config.PriceConfig{
		{ChainID: uint64(chain.Ethereum), Token: usdcAddr, USD: 1},
	})
	require.NoError(t, err)

	p, err := sp.USDPrice(context.Background(), chain.Ethereum, common.HexToAddress(usdcAddr).Bytes())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(p))

	_, err = sp.USDPrice(context.Background(), chain.Polygon, common.HexToAddress(usdcAddr).Bytes())
	assert.ErrorIs(t, err, ErrPriceNotFound)

	_, err = NewStaticPrices(chain.NewCodec(nil), []config.PriceConfig{{ChainID: 1, Token: "nope", USD: 1}})
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
}

func TestPriceService_FirstSourceWins(t *testing.T) {
	svc := NewPriceService(
		nil,
		fixedPrice{err: ErrPriceNotFound},
		fixedPrice{price: decimal.NewFromInt(0)},
		fixedPrice{price: decimal.NewFromInt(3000)},
		fixedPrice{price: decimal.NewFromInt(1)},
	)
	p, err := svc.USDPrice(context.Background(), chain.Ethereum, nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3000).Equal(p))
}

func TestPriceService_ReportsRealFailure(t *testing.T) {
	svc := NewPriceService(fixedPrice{err: errUnavailable}, fixedPrice{err: ErrPriceNotFound})
	_, err := svc.USDPrice(context.Background(), chain.Ethereum, nil)
	assert.ErrorIs(t, err, errUnavailable)

	svc = NewPriceService(fixedPrice{err: ErrPriceNotFound})
	_, err = svc.USDPrice(context.Background(), chain.Ethereum, nil)
	assert.ErrorIs(t, err, ErrPriceNotFound)

	_, err = NewPriceService().USDPrice(context.Background(), chain.Ethereum, nil)
	assert.True(t, errors.Is(err, ErrPriceNotFound))
}
