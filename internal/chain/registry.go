package chain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// Connection is the per-chain handle validators query through.
type Connection interface {
	GiveOrderStatus(ctx context.Context, orderID common.Hash) (model.OrderStatus, error)
	TokenDecimals(ctx context.Context, token []byte) (uint8, error)
}

// Provider groups everything known about one configured chain.
type Provider struct {
	ChainID model.ChainID
	Conn    Connection
	// Taker is the address this deployment fulfills from on the chain.
	Taker []byte
	// Decimals holds static overrides keyed by string(token bytes).
	Decimals map[string]uint8
}

// Registry maps chain id to provider. It is populated at startup and read
// concurrently by every evaluation.
type Registry struct {
	codec *Codec

	mu        sync.RWMutex
	providers map[model.ChainID]*Provider
}

func NewRegistry(codec *Codec) *Registry {
	return &Registry{
		codec:     codec,
		providers: make(map[model.ChainID]*Provider),
	}
}

// LoadRegistry builds the codec and registry from the chain section of the
// configuration. EVM chains with an rpc_url get an EVMConnection.
func LoadRegistry(chains []config.ChainConfig) (*Registry, error) {
	families := make(map[model.ChainID]Family, len(chains))
	for _, ch := range chains {
		if ch.Family != "" {
			families[model.ChainID(ch.ID)] = Family(ch.Family)
		}
	}
	codec := NewCodec(families)
	reg := NewRegistry(codec)

	for _, ch := range chains {
		id := model.ChainID(ch.ID)
		p := &Provider{ChainID: id, Decimals: make(map[string]uint8)}

		if ch.TakerAddress != "" {
			taker, err := codec.EncodeAddress(id, ch.TakerAddress)
			if err != nil {
				return nil, fmt.Errorf("chain %d taker: %w", id, err)
			}
			p.Taker = taker
		}
		for _, d := range ch.Decimals {
			token, err := codec.EncodeAddress(id, d.Token)
			if err != nil {
				return nil, fmt.Errorf("chain %d decimals: %w", id, err)
			}
			p.Decimals[string(token)] = d.Decimals
		}
		if codec.Family(id) == FamilyEVM && ch.RPCURL != "" {
			conn, err := NewEVMConnection(id, ch.RPCURL, ch.SourceContract,
				time.Duration(ch.RPCTimeoutMs)*time.Millisecond, ch.RPCRetries)
			if err != nil {
				return nil, err
			}
			p.Conn = conn
		}
		reg.Register(p)
	}
	return reg, nil
}

func (r *Registry) Codec() *Codec {
	return r.codec
}

func (r *Registry) Register(p *Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ChainID] = p
}

func (r *Registry) Provider(chainID model.ChainID) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[chainID]
	return p, ok
}

func (r *Registry) HasChain(chainID model.ChainID) bool {
	_, ok := r.Provider(chainID)
	return ok
}

// Chains returns the configured chain ids in ascending order.
func (r *Registry) Chains() []model.ChainID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]model.ChainID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *Registry) TakerAddress(chainID model.ChainID) ([]byte, bool) {
	p, ok := r.Provider(chainID)
	if !ok || len(p.Taker) == 0 {
		return nil, false
	}
	return p.Taker, true
}

func (r *Registry) connection(chainID model.ChainID) (Connection, error) {
	p, ok := r.Provider(chainID)
	if !ok || p.Conn == nil {
		return nil, fmt.Errorf("%w: no connection for chain %d", ErrUnsupportedChain, chainID)
	}
	return p.Conn, nil
}

func (r *Registry) GiveOrderStatus(ctx context.Context, chainID model.ChainID, orderID common.Hash) (model.OrderStatus, error) {
	conn, err := r.connection(chainID)
	if err != nil {
		return model.OrderStatusNotSet, err
	}
	return conn.GiveOrderStatus(ctx, orderID)
}

// TokenDecimals prefers a configured override and falls back to the chain.
func (r *Registry) TokenDecimals(ctx context.Context, chainID model.ChainID, token []byte) (uint8, error) {
	if p, ok := r.Provider(chainID); ok {
		if d, ok := p.Decimals[string(token)]; ok {
			return d, nil
		}
	}
	conn, err := r.connection(chainID)
	if err != nil {
		return 0, err
	}
	return conn.TokenDecimals(ctx, token)
}

// Close releases any open RPC clients.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if c, ok := p.Conn.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
