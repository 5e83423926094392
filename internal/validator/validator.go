// Package validator holds the admission predicates evaluated against every
// candidate order, and the pipeline that runs them.
//
// A predicate that needs chain-specific setup is expressed as an Initializer:
// Init runs once per chain and returns the Validator used for every order on
// that chain. Memoizing Init results is the caller's job.
package validator

import (
	"context"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ChainState answers give-side order state queries.
type ChainState interface {
	GiveOrderStatus(ctx context.Context, chainID model.ChainID, orderID common.Hash) (model.OrderStatus, error)
}

// Providers is the provider registry as seen by validators.
type Providers interface {
	Codec() *chain.Codec
	HasChain(chainID model.ChainID) bool
	TakerAddress(chainID model.ChainID) ([]byte, bool)
	TokenDecimals(ctx context.Context, chainID model.ChainID, token []byte) (uint8, error)
}

// PriceSource returns the USD price of one whole token unit.
type PriceSource interface {
	USDPrice(ctx context.Context, chainID model.ChainID, token []byte) (decimal.Decimal, error)
}

// Scope selects which side of an order decides the chain an Initializer is
// initialized for.
type Scope int

const (
	ScopeTake Scope = iota
	ScopeGive
)

// InitContext carries the inputs of a one-time chain initialization.
type InitContext struct {
	ChainID   model.ChainID
	Providers Providers
	Logger    *slog.Logger
}

// Context is built fresh for every evaluation.
type Context struct {
	Logger    *slog.Logger
	Chain     ChainState
	Providers Providers
	Prices    PriceSource
}

func (vc *Context) withLogger(l *slog.Logger) *Context {
	cp := *vc
	cp.Logger = l
	return &cp
}

// Validator approves or rejects a single order. A returned error is an
// external-dependency failure; callers treat it as a rejection.
type Validator interface {
	Name() string
	Evaluate(ctx context.Context, order *model.Order, vc *Context) (bool, error)
}

// Initializer produces a Validator bound to one chain.
type Initializer interface {
	Name() string
	Scope() Scope
	Init(ctx context.Context, ic *InitContext) (Validator, error)
}

type funcValidator struct {
	name string
	fn   func(ctx context.Context, order *model.Order, vc *Context) (bool, error)
}

// NewFunc adapts a plain function to a Validator.
func NewFunc(name string, fn func(ctx context.Context, order *model.Order, vc *Context) (bool, error)) Validator {
	return &funcValidator{name: name, fn: fn}
}

func (f *funcValidator) Name() string { return f.name }

func (f *funcValidator) Evaluate(ctx context.Context, order *model.Order, vc *Context) (bool, error) {
	return f.fn(ctx, order, vc)
}

type staticInit struct {
	v     Validator
	scope Scope
}

// Static wraps a Validator that needs no chain setup.
func Static(v Validator, scope Scope) Initializer {
	return &staticInit{v: v, scope: scope}
}

func (s *staticInit) Name() string { return s.v.Name() }

func (s *staticInit) Scope() Scope { return s.scope }

func (s *staticInit) Init(context.Context, *InitContext) (Validator, error) {
	return s.v, nil
}

// ChainFor returns the chain id an Initializer of the given scope is bound to
// for this order.
func ChainFor(scope Scope, order *model.Order) model.ChainID {
	if scope == ScopeGive {
		return order.Give.ChainID
	}
	return order.Take.ChainID
}
