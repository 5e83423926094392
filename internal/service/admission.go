package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/pkg/metrics"
	"github.com/GoPolymarket/swapgate/internal/validator"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ChainProviders is everything the controller and its validators need from
// the chain registry.
type ChainProviders interface {
	validator.Providers
	validator.ChainState
}

// ProcessedStore remembers orders that were already admitted.
type ProcessedStore interface {
	IsProcessed(ctx context.Context, orderID string) (bool, error)
	// Claim marks the order processed. It returns false if another
	// evaluation marked it first.
	Claim(ctx context.Context, orderID string) (bool, error)
}

type DecisionRecorder interface {
	Record(dec model.Decision)
}

type AdmissionOptions struct {
	// Global validators run for every order. Src validators are keyed by the
	// give chain, Dst validators by the take chain.
	Global []validator.Initializer
	Src    map[model.ChainID][]validator.Initializer
	Dst    map[model.ChainID][]validator.Initializer

	Providers ChainProviders
	Prices    validator.PriceSource
	Ledger    *BudgetLedger
	Slippage  *SlippageResolver
	Processed ProcessedStore
	Decisions DecisionRecorder

	// Timeout bounds one evaluation, external lookups included.
	Timeout     time.Duration
	Concurrency int
	Logger      *slog.Logger
}

type boundInit struct {
	id   string
	init validator.Initializer
}

// AdmissionController decides, one candidate at a time, whether an order is
// admitted: chain-scoped validator setup, the validator pipeline, then budget
// reservation for unconfirmed exposure.
type AdmissionController struct {
	opts   AdmissionOptions
	global []boundInit
	src    map[model.ChainID][]boundInit
	dst    map[model.ChainID][]boundInit
	logger *slog.Logger

	initGroup singleflight.Group
	mu        sync.RWMutex
	ready     map[string]validator.Validator
}

func NewAdmissionController(opts AdmissionOptions) (*AdmissionController, error) {
	if opts.Providers == nil {
		return nil, errors.New("admission: providers are required")
	}
	if opts.Ledger == nil {
		opts.Ledger = NewBudgetLedger(decimal.NullDecimal{}, opts.Logger)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 16
	}

	c := &AdmissionController{
		opts:   opts,
		src:    make(map[model.ChainID][]boundInit, len(opts.Src)),
		dst:    make(map[model.ChainID][]boundInit, len(opts.Dst)),
		logger: logger.Named(opts.Logger, "service", "admission"),
		ready:  make(map[string]validator.Validator),
	}
	c.global = bind("global", opts.Global)
	for id, inits := range opts.Src {
		c.src[id] = bind("src/"+id.String(), inits)
	}
	for id, inits := range opts.Dst {
		c.dst[id] = bind("dst/"+id.String(), inits)
	}
	return c, nil
}

func bind(prefix string, inits []validator.Initializer) []boundInit {
	out := make([]boundInit, 0, len(inits))
	for i, in := range inits {
		if in == nil {
			continue
		}
		out = append(out, boundInit{id: fmt.Sprintf("%s/%d/%s", prefix, i, in.Name()), init: in})
	}
	return out
}

// Evaluate runs the full admission decision for one candidate. It never
// panics and never returns an error: every failure is a rejection.
func (c *AdmissionController) Evaluate(ctx context.Context, cand model.Candidate) (dec model.Decision) {
	order := cand.Order
	dec = model.Decision{At: time.Now().UTC()}
	if order == nil {
		dec.Reason = model.ReasonInvalidOrder
		c.finish(dec, nil)
		return dec
	}
	dec.OrderID = order.ID.Hex()
	dec.GiveChain = order.Give.ChainID
	dec.TakeChain = order.Take.ChainID

	log := c.logger.With(slog.String("order_id", dec.OrderID))
	var (
		held     Reservation
		reserved bool
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("admission panicked, rejecting order", slog.Any("panic", r))
			if reserved {
				c.opts.Ledger.Rollback(held)
			}
			dec.Admitted = false
			dec.Reason = model.ReasonInternal
		}
		c.finish(dec, log)
	}()

	evalCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if c.opts.Processed != nil {
		done, err := c.opts.Processed.IsProcessed(evalCtx, dec.OrderID)
		if err != nil {
			log.Warn("processed lookup failed", slog.String("error", err.Error()))
			dec.Reason = model.ReasonStoreUnavailable
			return dec
		}
		if done {
			dec.Reason = model.ReasonAlreadyProcessed
			return dec
		}
	}

	pipeline, failed, err := c.pipelineFor(evalCtx, order)
	if err != nil {
		log.Warn("validator init failed", slog.String("validator", failed), slog.String("error", err.Error()))
		dec.Reason = model.ReasonInitFailed
		dec.Validator = failed
		return dec
	}

	vc := &validator.Context{
		Logger:    log,
		Chain:     c.opts.Providers,
		Providers: c.opts.Providers,
		Prices:    c.opts.Prices,
	}
	res := pipeline.Evaluate(evalCtx, order, vc)
	if !res.Admitted {
		dec.Reason = model.ReasonValidatorRejected
		dec.Validator = res.RejectedBy
		return dec
	}

	if !cand.Confirmed && c.opts.Ledger.Enabled() {
		worth, err := c.orderWorth(evalCtx, order)
		if err != nil {
			log.Warn("order worth unavailable", slog.String("error", err.Error()))
			dec.Reason = model.ReasonPriceUnavailable
			return dec
		}
		dec.USDWorth = worth
		r, err := c.opts.Ledger.Reserve(dec.OrderID, worth)
		if err != nil {
			if errors.Is(err, ErrBudgetExceeded) {
				dec.Reason = model.ReasonBudgetExceeded
			} else {
				log.Warn("budget reservation failed", slog.String("error", err.Error()))
				dec.Reason = model.ReasonInternal
			}
			return dec
		}
		held, reserved = r, true
	}

	if c.opts.Processed != nil {
		claimed, err := c.opts.Processed.Claim(evalCtx, dec.OrderID)
		if err != nil {
			if reserved {
				// a concurrent duplicate may own the entry by now
				c.opts.Ledger.Rollback(held)
			}
			log.Warn("processed claim failed", slog.String("error", err.Error()))
			dec.Reason = model.ReasonStoreUnavailable
			return dec
		}
		if !claimed {
			// the winning evaluation holds the reservation under the same id
			dec.Reason = model.ReasonAlreadyProcessed
			return dec
		}
	}

	dec.Admitted = true
	dec.Reason = model.ReasonAdmitted
	return dec
}

// EvaluateBatch evaluates candidates concurrently. Decisions are returned in
// input order.
func (c *AdmissionController) EvaluateBatch(ctx context.Context, cands []model.Candidate) []model.Decision {
	out := make([]model.Decision, len(cands))
	g := new(errgroup.Group)
	g.SetLimit(c.opts.Concurrency)
	for i := range cands {
		g.Go(func() error {
			out[i] = c.Evaluate(ctx, cands[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Release drops the order's budget reservation, typically once the order is
// confirmed, fulfilled, or cancelled.
func (c *AdmissionController) Release(orderID string) {
	c.opts.Ledger.Release(orderID)
}

func (c *AdmissionController) Budget() BudgetSnapshot {
	return c.opts.Ledger.Snapshot()
}

// Slippage resolves the tolerance for a pre-fulfillment swap on chainID.
func (c *AdmissionController) Slippage(chainID model.ChainID, tokenIn, tokenOut string) (int, error) {
	if c.opts.Slippage == nil {
		return 0, ErrSlippageUnresolved
	}
	return c.opts.Slippage.ResolveAddresses(chainID, tokenIn, tokenOut)
}

func (c *AdmissionController) finish(dec model.Decision, log *slog.Logger) {
	if log == nil {
		log = c.logger
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("recording decision panicked", slog.Any("panic", r))
		}
	}()
	result := "rejected"
	if dec.Admitted {
		result = "admitted"
	}
	metrics.AdmissionDecisions.WithLabelValues(result, dec.Reason).Inc()
	log.Info("admission decision",
		slog.Bool("admitted", dec.Admitted),
		slog.String("reason", dec.Reason),
		slog.String("validator", dec.Validator),
		slog.String("usd_worth", dec.USDWorth.String()),
		slog.Uint64("give_chain_id", uint64(dec.GiveChain)),
		slog.Uint64("take_chain_id", uint64(dec.TakeChain)),
	)
	if c.opts.Decisions != nil {
		c.opts.Decisions.Record(dec)
	}
}

// pipelineFor assembles global, source-chain and destination-chain
// validators, initializing each for its chain on first use. On failure it
// returns the name of the initializer that failed.
func (c *AdmissionController) pipelineFor(ctx context.Context, order *model.Order) (*validator.Pipeline, string, error) {
	groups := [][]boundInit{c.global, c.src[order.Give.ChainID], c.dst[order.Take.ChainID]}
	vs := make([]validator.Validator, 0, len(c.global)+len(groups[1])+len(groups[2]))
	for _, group := range groups {
		for _, b := range group {
			v, err := c.initialized(ctx, b, validator.ChainFor(b.init.Scope(), order))
			if err != nil {
				return nil, b.init.Name(), err
			}
			vs = append(vs, v)
		}
	}
	return validator.NewPipeline(vs...), "", nil
}

// initialized returns the validator b produces for chainID. Concurrent first
// sightings of a chain share one Init call; only successes are kept.
func (c *AdmissionController) initialized(ctx context.Context, b boundInit, chainID model.ChainID) (validator.Validator, error) {
	key := b.id + "@" + chainID.String()

	c.mu.RLock()
	v, ok := c.ready[key]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := c.initGroup.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		v, ok := c.ready[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		// detached so one caller's cancellation does not fail everyone
		// waiting on the same key
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()
		v, err := b.init.Init(initCtx, &validator.InitContext{
			ChainID:   chainID,
			Providers: c.opts.Providers,
			Logger:    logger.Named(c.logger, "validator", b.init.Name()),
		})
		if err != nil {
			metrics.ChainInits.WithLabelValues(chainID.String(), "error").Inc()
			return nil, err
		}
		if v == nil {
			metrics.ChainInits.WithLabelValues(chainID.String(), "error").Inc()
			return nil, fmt.Errorf("%s: init returned no validator", b.init.Name())
		}
		metrics.ChainInits.WithLabelValues(chainID.String(), "ok").Inc()

		c.mu.Lock()
		c.ready[key] = v
		c.mu.Unlock()
		c.logger.Debug("validator initialized", slog.String("validator", b.init.Name()), slog.String("chain_id", chainID.String()))
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(validator.Validator), nil
}

// orderWorth prices the give side, which is the exposure carried until the
// order is confirmed.
func (c *AdmissionController) orderWorth(ctx context.Context, order *model.Order) (decimal.Decimal, error) {
	if c.opts.Prices == nil {
		return decimal.Zero, errors.New("no price source configured")
	}
	var (
		dec   uint8
		price decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := c.opts.Providers.TokenDecimals(gctx, order.Give.ChainID, order.Give.Token)
		if err != nil {
			return fmt.Errorf("give decimals: %w", err)
		}
		dec = d
		return nil
	})
	g.Go(func() error {
		p, err := c.opts.Prices.USDPrice(gctx, order.Give.ChainID, order.Give.Token)
		if err != nil {
			return fmt.Errorf("give price: %w", err)
		}
		price = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, err
	}
	return validator.USDWorth(order.Give, dec, price), nil
}
