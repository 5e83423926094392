package service

import (
	"errors"
	"fmt"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/metrics"
)

var ErrSlippageUnresolved = errors.New("no slippage configured")

// SlippageResolver answers the slippage tolerance for a pre-fulfillment swap.
// Layers are consulted in order (local overrides first, base last); inside a
// layer the most specific entry wins. Token keys are decoded to chain-native
// bytes once, at construction.
type SlippageResolver struct {
	codec  *chain.Codec
	layers []slippageLayer
}

type slippageLayer struct {
	global *int
	chains map[model.ChainID]*slippageChain
}

type slippageChain struct {
	bps     *int
	tokenIn map[string]*slippageTokenIn
}

type slippageTokenIn struct {
	bps   *int
	pairs []slippagePair
}

type slippagePair struct {
	tokensOut map[string]struct{}
	bps       int
}

// NewSlippageResolver compiles the layers. Nil layers are skipped. Invalid
// token keys or negative values are configuration errors.
func NewSlippageResolver(codec *chain.Codec, layers ...*model.SlippageOverrides) (*SlippageResolver, error) {
	r := &SlippageResolver{codec: codec}
	for i, l := range layers {
		if l == nil {
			continue
		}
		compiled, err := compileLayer(codec, l)
		if err != nil {
			return nil, fmt.Errorf("slippage layer %d: %w", i, err)
		}
		r.layers = append(r.layers, compiled)
	}
	return r, nil
}

func compileLayer(codec *chain.Codec, l *model.SlippageOverrides) (slippageLayer, error) {
	if err := checkBps(l.SlippageBps); err != nil {
		return slippageLayer{}, err
	}
	out := slippageLayer{global: l.SlippageBps, chains: make(map[model.ChainID]*slippageChain, len(l.PerChain))}
	for chainID, ch := range l.PerChain {
		if err := checkBps(ch.SlippageBps); err != nil {
			return slippageLayer{}, fmt.Errorf("chain %d: %w", chainID, err)
		}
		sc := &slippageChain{bps: ch.SlippageBps, tokenIn: make(map[string]*slippageTokenIn, len(ch.PerTokenIn))}
		for rawIn, tin := range ch.PerTokenIn {
			in, err := codec.EncodeAddress(chainID, rawIn)
			if err != nil {
				return slippageLayer{}, fmt.Errorf("chain %d token in: %w", chainID, err)
			}
			if err := checkBps(tin.SlippageBps); err != nil {
				return slippageLayer{}, fmt.Errorf("chain %d token %s: %w", chainID, rawIn, err)
			}
			st := &slippageTokenIn{bps: tin.SlippageBps}
			for _, pair := range tin.Overrides {
				if pair.SlippageBps < 0 {
					return slippageLayer{}, fmt.Errorf("chain %d token %s: negative pair slippage", chainID, rawIn)
				}
				sp := slippagePair{tokensOut: make(map[string]struct{}, len(pair.TokensOut)), bps: pair.SlippageBps}
				for _, rawOut := range pair.TokensOut {
					o, err := codec.EncodeAddress(chainID, rawOut)
					if err != nil {
						return slippageLayer{}, fmt.Errorf("chain %d token out: %w", chainID, err)
					}
					sp.tokensOut[string(o)] = struct{}{}
				}
				st.pairs = append(st.pairs, sp)
			}
			sc.tokenIn[string(in)] = st
		}
		out.chains[chainID] = sc
	}
	return out, nil
}

func checkBps(v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("negative slippage %d bps", *v)
	}
	return nil
}

// Resolve returns the tolerance in basis points. tokenIn and tokenOut are
// chain-native bytes. ErrSlippageUnresolved means no layer had an entry.
func (r *SlippageResolver) Resolve(chainID model.ChainID, tokenIn, tokenOut []byte) (int, error) {
	for _, l := range r.layers {
		if bps, ok := l.resolve(chainID, tokenIn, tokenOut); ok {
			return bps, nil
		}
	}
	metrics.SlippageUnresolved.Inc()
	return 0, fmt.Errorf("%w: chain %d", ErrSlippageUnresolved, chainID)
}

// ResolveAddresses is Resolve for human-readable token addresses.
func (r *SlippageResolver) ResolveAddresses(chainID model.ChainID, tokenIn, tokenOut string) (int, error) {
	in, err := r.codec.EncodeAddress(chainID, tokenIn)
	if err != nil {
		return 0, err
	}
	out, err := r.codec.EncodeAddress(chainID, tokenOut)
	if err != nil {
		return 0, err
	}
	return r.Resolve(chainID, in, out)
}

func (l slippageLayer) resolve(chainID model.ChainID, tokenIn, tokenOut []byte) (int, bool) {
	if ch, ok := l.chains[chainID]; ok {
		if tin, ok := ch.tokenIn[string(tokenIn)]; ok {
			for _, p := range tin.pairs {
				if _, hit := p.tokensOut[string(tokenOut)]; hit {
					return p.bps, true
				}
			}
			if tin.bps != nil {
				return *tin.bps, true
			}
		}
		if ch.bps != nil {
			return *ch.bps, true
		}
	}
	if l.global != nil {
		return *l.global, true
	}
	return 0, false
}

// LoadSlippageResolver reads the local and base override files and appends
// default_bps as the last layer.
func LoadSlippageResolver(codec *chain.Codec, cfg config.SlippageConfig) (*SlippageResolver, error) {
	local, err := config.LoadSlippage(cfg.LocalFile)
	if err != nil {
		return nil, err
	}
	base, err := config.LoadSlippage(cfg.BaseFile)
	if err != nil {
		return nil, err
	}
	var fallback *model.SlippageOverrides
	if cfg.DefaultBps != nil {
		fallback = &model.SlippageOverrides{SlippageBps: model.Bps(*cfg.DefaultBps)}
	}
	return NewSlippageResolver(codec, local, base, fallback)
}
