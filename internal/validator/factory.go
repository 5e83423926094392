package validator

import (
	"fmt"
	"strings"

	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/model"
)

// Build turns one configured validator into its Initializer.
func Build(cfg config.ValidatorConfig) (Initializer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "give_token_blacklist":
		return GiveTokenBlacklist(cfg.Tokens), nil
	case "give_token_whitelist":
		return GiveTokenWhitelist(cfg.Tokens), nil
	case "take_token_blacklist":
		return TakeTokenBlacklist(cfg.Tokens), nil
	case "take_token_whitelist":
		return TakeTokenWhitelist(cfg.Tokens), nil
	case "chain_defined":
		return ChainDefined(), nil
	case "order_state":
		return OrderState(), nil
	case "profitability":
		if cfg.MinProfitabilityBps < 0 {
			return nil, fmt.Errorf("profitability: min_profitability_bps must not be negative")
		}
		return Profitability(cfg.MinProfitabilityBps), nil
	case "whitelisted_taker":
		return WhitelistedTaker(), nil
	case "disable_fulfill":
		return DisableFulfill(), nil
	default:
		return nil, fmt.Errorf("unknown validator type %q", cfg.Type)
	}
}

func BuildAll(cfgs []config.ValidatorConfig) ([]Initializer, error) {
	out := make([]Initializer, 0, len(cfgs))
	for i, c := range cfgs {
		init, err := Build(c)
		if err != nil {
			return nil, fmt.Errorf("validator #%d: %w", i, err)
		}
		out = append(out, init)
	}
	return out, nil
}

// Set is every configured validator, grouped the way admission consumes
// them.
type Set struct {
	Global []Initializer
	Src    map[model.ChainID][]Initializer
	Dst    map[model.ChainID][]Initializer
}

func FromConfig(cfg *config.Config) (*Set, error) {
	global, err := BuildAll(cfg.Validators)
	if err != nil {
		return nil, fmt.Errorf("global validators: %w", err)
	}
	set := &Set{
		Global: global,
		Src:    make(map[model.ChainID][]Initializer),
		Dst:    make(map[model.ChainID][]Initializer),
	}
	for _, ch := range cfg.Chains {
		id := model.ChainID(ch.ID)
		src, err := BuildAll(ch.SrcValidators)
		if err != nil {
			return nil, fmt.Errorf("chain %d src validators: %w", id, err)
		}
		dst, err := BuildAll(ch.DstValidators)
		if err != nil {
			return nil, fmt.Errorf("chain %d dst validators: %w", id, err)
		}
		if len(src) > 0 {
			set.Src[id] = src
		}
		if len(dst) > 0 {
			set.Dst[id] = dst
		}
	}
	return set, nil
}
