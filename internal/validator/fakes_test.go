package validator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	usdc  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth  = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	maker = "0x1111111111111111111111111111111111111111"
	recv  = "0x2222222222222222222222222222222222222222"
	taker = "0x3333333333333333333333333333333333333333"
)

var errLookup = errors.New("lookup failed")

type fakeProviders struct {
	codec    *chain.Codec
	chains   map[model.ChainID]bool
	takers   map[model.ChainID][]byte
	decimals map[string]uint8
	decErr   error
}

func newFakeProviders(chains ...model.ChainID) *fakeProviders {
	p := &fakeProviders{
		codec:    chain.NewCodec(nil),
		chains:   make(map[model.ChainID]bool),
		takers:   make(map[model.ChainID][]byte),
		decimals: make(map[string]uint8),
	}
	for _, id := range chains {
		p.chains[id] = true
	}
	return p
}

func (p *fakeProviders) Codec() *chain.Codec { return p.codec }

func (p *fakeProviders) HasChain(id model.ChainID) bool { return p.chains[id] }

func (p *fakeProviders) TakerAddress(id model.ChainID) ([]byte, bool) {
	t, ok := p.takers[id]
	return t, ok
}

func (p *fakeProviders) TokenDecimals(_ context.Context, _ model.ChainID, token []byte) (uint8, error) {
	if p.decErr != nil {
		return 0, p.decErr
	}
	d, ok := p.decimals[string(token)]
	if !ok {
		return 0, errLookup
	}
	return d, nil
}

type fakeChainState struct {
	mu     sync.Mutex
	status model.OrderStatus
	err    error
	calls  int
}

func (f *fakeChainState) GiveOrderStatus(context.Context, model.ChainID, common.Hash) (model.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.status, f.err
}

type fakePrices struct {
	prices map[string]decimal.Decimal
	err    error
}

func (f *fakePrices) USDPrice(_ context.Context, _ model.ChainID, token []byte) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	p, ok := f.prices[string(token)]
	if !ok {
		return decimal.Zero, errLookup
	}
	return p, nil
}

func addr(s string) []byte {
	return common.HexToAddress(s).Bytes()
}

// newOrder swaps 1000 USDC on Ethereum for 0.49 WETH on Arbitrum.
func newOrder() *model.Order {
	o := &model.Order{
		MakerOrderNonce: 7,
		Maker:           addr(maker),
		Give: model.TokenAmount{
			ChainID: chain.Ethereum,
			Token:   addr(usdc),
			Amount:  big.NewInt(1_000_000_000),
		},
		Take: model.TokenAmount{
			ChainID: chain.Arbitrum,
			Token:   addr(weth),
			Amount:  new(big.Int).Mul(big.NewInt(49), big.NewInt(1e16)),
		},
		Receiver:        addr(recv),
		AllowedTakerDst: addr(taker),
	}
	o.ID = o.CalculateID()
	return o
}

func newContext(p *fakeProviders) *Context {
	return &Context{
		Logger:    logger.Discard(),
		Chain:     &fakeChainState{status: model.OrderStatusCreated},
		Providers: p,
		Prices:    &fakePrices{},
	}
}

func mustInit(t *testing.T, in Initializer, p *fakeProviders, chainID model.ChainID) Validator {
	t.Helper()
	v, err := in.Init(context.Background(), &InitContext{ChainID: chainID, Providers: p, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("init %s: %v", in.Name(), err)
	}
	return v
}
