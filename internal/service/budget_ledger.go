package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

var ErrBudgetExceeded = errors.New("unconfirmed budget exceeded")

// BudgetExceededError carries the figures behind a refused reservation.
type BudgetExceededError struct {
	OrderID   string
	Requested decimal.Decimal
	Ceiling   decimal.Decimal
	Spent     decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("order %s worth %s USD exceeds unconfirmed budget: spent %s of %s USD",
		e.OrderID, e.Requested.String(), e.Spent.String(), e.Ceiling.String())
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}

// BudgetLedger tracks USD exposure reserved by orders that are admitted but
// not yet confirmed, against one global ceiling. Every read and mutation goes
// through mu, so a check and its commit are one atomic step.
type BudgetLedger struct {
	mu           sync.Mutex
	enabled      bool
	ceiling      decimal.Decimal
	spent        decimal.Decimal
	reservations map[string]reservation
	gen          uint64
	logger       *slog.Logger
}

type reservation struct {
	worth decimal.Decimal
	gen   uint64
}

// Reservation identifies the entry written by one Reserve call.
type Reservation struct {
	OrderID string
	// Fresh is false when the order already held a reservation that this
	// call replaced.
	Fresh bool
	gen   uint64
}

// NewBudgetLedger creates a ledger. An invalid (null) ceiling disables the
// limit: every check passes.
func NewBudgetLedger(ceiling decimal.NullDecimal, log *slog.Logger) *BudgetLedger {
	if log == nil {
		log = logger.Get()
	}
	return &BudgetLedger{
		enabled:      ceiling.Valid,
		ceiling:      ceiling.Decimal,
		reservations: make(map[string]reservation),
		logger:       logger.Named(log, "service", "budget_ledger"),
	}
}

func (l *BudgetLedger) Enabled() bool {
	return l.enabled
}

// Validate reports whether reserving usdWorth for orderID would fit under
// the ceiling, netting any reservation the order already holds. It never
// mutates the ledger.
func (l *BudgetLedger) Validate(orderID string, usdWorth decimal.Decimal) (bool, error) {
	if usdWorth.IsNegative() {
		return false, fmt.Errorf("budget: negative worth %s for order %s", usdWorth.String(), orderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(orderID, usdWorth); err != nil {
		return false, err
	}
	return true, nil
}

// ValidateAndReserve performs Validate and, if it passes, replaces the
// order's reservation with usdWorth in the same critical section.
func (l *BudgetLedger) ValidateAndReserve(orderID string, usdWorth decimal.Decimal) (bool, error) {
	if _, err := l.Reserve(orderID, usdWorth); err != nil {
		return false, err
	}
	return true, nil
}

// Reserve is ValidateAndReserve returning a handle that Rollback can undo
// without touching a reservation written by a later call for the same order.
func (l *BudgetLedger) Reserve(orderID string, usdWorth decimal.Decimal) (Reservation, error) {
	if usdWorth.IsNegative() {
		return Reservation{}, fmt.Errorf("budget: negative worth %s for order %s", usdWorth.String(), orderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(orderID, usdWorth); err != nil {
		return Reservation{}, err
	}

	prev, held := l.reservations[orderID]
	l.gen++
	l.spent = l.spent.Sub(prev.worth).Add(usdWorth)
	l.reservations[orderID] = reservation{worth: usdWorth, gen: l.gen}
	metrics.BudgetSpentUSD.Set(l.spent.InexactFloat64())

	l.logger.Debug("budget reserved",
		slog.String("order_id", orderID),
		slog.String("worth_usd", usdWorth.String()),
		slog.String("previous_usd", prev.worth.String()),
		slog.String("spent_usd", l.spent.String()),
	)
	return Reservation{OrderID: orderID, Fresh: !held, gen: l.gen}, nil
}

// Rollback drops r's entry if r created it and no later Reserve for the same
// order has replaced it. Otherwise the entry belongs to someone else and is
// left alone.
func (l *BudgetLedger) Rollback(r Reservation) {
	if !r.Fresh {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.reservations[r.OrderID]
	if !ok || cur.gen != r.gen {
		return
	}
	l.drop(r.OrderID, cur)
}

// Release drops the order's reservation. Unknown orders are a no-op.
func (l *BudgetLedger) Release(orderID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, ok := l.reservations[orderID]
	if !ok {
		return
	}
	l.drop(orderID, prev)
}

// drop must be called with mu held.
func (l *BudgetLedger) drop(orderID string, prev reservation) {
	delete(l.reservations, orderID)
	l.spent = l.spent.Sub(prev.worth)
	metrics.BudgetSpentUSD.Set(l.spent.InexactFloat64())

	l.logger.Debug("budget released",
		slog.String("order_id", orderID),
		slog.String("released_usd", prev.worth.String()),
		slog.String("spent_usd", l.spent.String()),
	)
}

// check must be called with mu held.
func (l *BudgetLedger) check(orderID string, usdWorth decimal.Decimal) error {
	if !l.enabled {
		return nil
	}
	projected := l.spent.Add(usdWorth).Sub(l.reservations[orderID].worth)
	if projected.GreaterThan(l.ceiling) {
		metrics.BudgetExceeded.Inc()
		l.logger.Warn("budget exceeded",
			slog.String("order_id", orderID),
			slog.String("requested_usd", usdWorth.String()),
			slog.String("ceiling_usd", l.ceiling.String()),
			slog.String("spent_usd", l.spent.String()),
		)
		return &BudgetExceededError{
			OrderID:   orderID,
			Requested: usdWorth,
			Ceiling:   l.ceiling,
			Spent:     l.spent,
		}
	}
	return nil
}

// Reserved returns the order's current reservation.
func (l *BudgetLedger) Reserved(orderID string) (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.reservations[orderID]
	return v.worth, ok
}

type BudgetSnapshot struct {
	Enabled bool            `json:"enabled"`
	Ceiling decimal.Decimal `json:"ceiling_usd"`
	Spent   decimal.Decimal `json:"spent_usd"`
	Orders  int             `json:"orders"`
}

func (l *BudgetLedger) Snapshot() BudgetSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return BudgetSnapshot{
		Enabled: l.enabled,
		Ceiling: l.ceiling,
		Spent:   l.spent,
		Orders:  len(l.reservations),
	}
}
