// Command inspector loads the gateway configuration and prints what the
// admission layer would run with: chains, validators per chain, and
// optionally the slippage resolved for one swap.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/GoPolymarket/swapgate/internal/validator"
)

func main() {
	chainID := flag.Uint64("chain", 0, "chain id for a slippage lookup")
	tokenIn := flag.String("in", "", "input token for a slippage lookup")
	tokenOut := flag.String("out", "", "output token for a slippage lookup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	registry, err := chain.LoadRegistry(cfg.Chains)
	if err != nil {
		log.Fatalf("Failed to load chains: %v", err)
	}
	defer registry.Close()
	validators, err := validator.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build validators: %v", err)
	}

	fmt.Println("--- Chains ---")
	for _, id := range registry.Chains() {
		taker := "-"
		if t, ok := registry.TakerAddress(id); ok {
			taker = registry.Codec().FormatAddress(id, t)
		}
		fmt.Printf("Chain: %d (family: %s, taker: %s)\n", id, registry.Codec().Family(id), taker)
	}

	fmt.Println("\n--- Validators ---")
	printInits("global", validators.Global)
	for _, id := range registry.Chains() {
		printInits(fmt.Sprintf("src %d", id), validators.Src[id])
		printInits(fmt.Sprintf("dst %d", id), validators.Dst[id])
	}

	fmt.Println("\n--- Budget ---")
	if cfg.Budget.MaxUnconfirmedUSD == nil {
		fmt.Println("Ceiling: disabled")
	} else {
		fmt.Printf("Ceiling: %.2f USD\n", *cfg.Budget.MaxUnconfirmedUSD)
	}

	if *chainID == 0 {
		return
	}
	resolver, err := service.LoadSlippageResolver(registry.Codec(), cfg.Slippage)
	if err != nil {
		log.Fatalf("Failed to load slippage overrides: %v", err)
	}
	bps, err := resolver.ResolveAddresses(model.ChainID(*chainID), *tokenIn, *tokenOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slippage: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n--- Slippage ---\n%d %s -> %s: %d bps\n", *chainID, *tokenIn, *tokenOut, bps)
}

func printInits(label string, inits []validator.Initializer) {
	if len(inits) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, in := range inits {
		scope := "take"
		if in.Scope() == validator.ScopeGive {
			scope = "give"
		}
		fmt.Printf("  %s (scope: %s)\n", in.Name(), scope)
	}
}
