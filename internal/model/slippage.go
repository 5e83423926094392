package model

// SlippageOverrides is one layer of slippage configuration. Every level is
// optional; the most specific populated level wins.
type SlippageOverrides struct {
	SlippageBps *int                      `json:"slippage_bps,omitempty" mapstructure:"slippage_bps"`
	PerChain    map[ChainID]ChainSlippage `json:"per_chain,omitempty" mapstructure:"per_chain"`
}

type ChainSlippage struct {
	SlippageBps *int                       `json:"slippage_bps,omitempty" mapstructure:"slippage_bps"`
	PerTokenIn  map[string]TokenInSlippage `json:"per_token_in,omitempty" mapstructure:"per_token_in"`
}

type TokenInSlippage struct {
	SlippageBps *int           `json:"slippage_bps,omitempty" mapstructure:"slippage_bps"`
	Overrides   []PairSlippage `json:"overrides,omitempty" mapstructure:"overrides"`
}

// PairSlippage applies to swaps from the enclosing input token into any of
// TokensOut.
type PairSlippage struct {
	TokensOut   []string `json:"tokens_out" mapstructure:"tokens_out"`
	SlippageBps int      `json:"slippage_bps" mapstructure:"slippage_bps"`
}

// Bps is a convenience for building optional basis-point values.
func Bps(v int) *int {
	return &v
}
