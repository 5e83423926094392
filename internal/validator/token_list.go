package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoPolymarket/swapgate/internal/model"
)

type listMode int

const (
	blacklist listMode = iota
	whitelist
)

// tokenList rejects (blacklist) or requires (whitelist) membership of the
// give or take token. Configured addresses are encoded with the chain's
// native encoding at Init, so matching is an exact byte comparison.
type tokenList struct {
	name   string
	scope  Scope
	mode   listMode
	tokens []string
}

func GiveTokenBlacklist(tokens []string) Initializer {
	return &tokenList{name: "give_token_blacklist", scope: ScopeGive, mode: blacklist, tokens: tokens}
}

func GiveTokenWhitelist(tokens []string) Initializer {
	return &tokenList{name: "give_token_whitelist", scope: ScopeGive, mode: whitelist, tokens: tokens}
}

func TakeTokenBlacklist(tokens []string) Initializer {
	return &tokenList{name: "take_token_blacklist", scope: ScopeTake, mode: blacklist, tokens: tokens}
}

func TakeTokenWhitelist(tokens []string) Initializer {
	return &tokenList{name: "take_token_whitelist", scope: ScopeTake, mode: whitelist, tokens: tokens}
}

func (t *tokenList) Name() string { return t.name }

func (t *tokenList) Scope() Scope { return t.scope }

func (t *tokenList) Init(_ context.Context, ic *InitContext) (Validator, error) {
	codec := ic.Providers.Codec()
	set := make(map[string]struct{}, len(t.tokens))
	for _, raw := range t.tokens {
		b, err := codec.EncodeAddress(ic.ChainID, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
		set[string(b)] = struct{}{}
	}
	return &boundTokenList{list: t, chainID: ic.ChainID, set: set}, nil
}

type boundTokenList struct {
	list    *tokenList
	chainID model.ChainID
	set     map[string]struct{}
}

func (b *boundTokenList) Name() string { return b.list.name }

func (b *boundTokenList) Evaluate(_ context.Context, order *model.Order, vc *Context) (bool, error) {
	side := order.Take
	if b.list.scope == ScopeGive {
		side = order.Give
	}
	if side.ChainID != b.chainID {
		return false, fmt.Errorf("%s: initialized for chain %d, order side is on chain %d", b.list.name, b.chainID, side.ChainID)
	}

	_, listed := b.set[string(side.Token)]
	result := !listed
	if b.list.mode == whitelist {
		result = listed
	}

	vc.Logger.Info("validator result",
		slog.Bool("result", result),
		slog.String("token", vc.Providers.Codec().FormatAddress(side.ChainID, side.Token)),
		slog.Uint64("chain_id", uint64(side.ChainID)),
		slog.Bool("listed", listed),
	)
	return result, nil
}
