package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newLedger(ceiling int64) *BudgetLedger {
	return NewBudgetLedger(decimal.NewNullDecimal(usd(ceiling)), logger.Discard())
}

func TestBudgetLedger_ReserveUntilFull(t *testing.T) {
	l := newLedger(100)

	ok, err := l.ValidateAndReserve("A", usd(10))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.ValidateAndReserve("B", usd(90))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, usd(100).Equal(l.Snapshot().Spent))

	ok, err = l.ValidateAndReserve("C", usd(1000))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	var exceeded *BudgetExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.True(t, usd(1000).Equal(exceeded.Requested))
	assert.True(t, usd(100).Equal(exceeded.Ceiling))
	assert.True(t, usd(100).Equal(exceeded.Spent))
	assert.True(t, usd(100).Equal(l.Snapshot().Spent), "failed reservation must not change the total")
	_, held := l.Reserved("C")
	assert.False(t, held)

	l.Release("A")
	assert.True(t, usd(90).Equal(l.Snapshot().Spent))
	ok, err = l.ValidateAndReserve("D", usd(10))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBudgetLedger_ReReservationNets(t *testing.T) {
	l := newLedger(100)

	_, err := l.ValidateAndReserve("X", usd(50))
	require.NoError(t, err)
	assert.True(t, usd(50).Equal(l.Snapshot().Spent))

	_, err = l.ValidateAndReserve("X", usd(80))
	require.NoError(t, err)
	assert.True(t, usd(80).Equal(l.Snapshot().Spent))

	_, err = l.ValidateAndReserve("X", usd(200))
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.True(t, usd(80).Equal(l.Snapshot().Spent))
	held, ok := l.Reserved("X")
	require.True(t, ok)
	assert.True(t, usd(80).Equal(held))
	assert.Equal(t, 1, l.Snapshot().Orders)
}

func TestBudgetLedger_ValidateDoesNotMutate(t *testing.T) {
	l := newLedger(100)
	_, err := l.ValidateAndReserve("X", usd(60))
	require.NoError(t, err)

	ok, err := l.Validate("Y", usd(40))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.Validate("Y", usd(41))
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	// an order's own reservation is netted
	ok, err = l.Validate("X", usd(100))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, usd(60).Equal(l.Snapshot().Spent))
	assert.Equal(t, 1, l.Snapshot().Orders)
}

func TestBudgetLedger_Disabled(t *testing.T) {
	l := NewBudgetLedger(decimal.NullDecimal{}, logger.Discard())
	assert.False(t, l.Enabled())

	ok, err := l.Validate("A", usd(1_000_000))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.ValidateAndReserve("A", usd(1_000_000))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, l.Snapshot().Enabled)
}

func TestBudgetLedger_ZeroCeilingAdmitsOnlyZero(t *testing.T) {
	l := newLedger(0)
	ok, err := l.ValidateAndReserve("A", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = l.ValidateAndReserve("B", decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestBudgetLedger_NegativeWorthRejected(t *testing.T) {
	l := newLedger(100)
	_, err := l.ValidateAndReserve("A", usd(-1))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrBudgetExceeded)
	_, err = l.Validate("A", usd(-1))
	assert.Error(t, err)
	assert.True(t, l.Snapshot().Spent.IsZero())
}

func TestBudgetLedger_ReleaseUnknownIsNoop(t *testing.T) {
	l := newLedger(100)
	_, err := l.ValidateAndReserve("A", usd(30))
	require.NoError(t, err)
	l.Release("nope")
	l.Release("A")
	l.Release("A")
	assert.True(t, l.Snapshot().Spent.IsZero())
	assert.Equal(t, 0, l.Snapshot().Orders)
}

func TestBudgetLedger_ConcurrentReservationsNeverOvershoot(t *testing.T) {
	l := newLedger(50)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if ok, err := l.ValidateAndReserve(fmt.Sprintf("order-%d", i), usd(1)); err == nil && ok {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(50), admitted.Load())
	assert.True(t, usd(50).Equal(l.Snapshot().Spent))
	assert.Equal(t, 50, l.Snapshot().Orders)
}

func TestBudgetLedger_ConcurrentReserveAndRelease(t *testing.T) {
	l := newLedger(10)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("order-%d", i%10)
			if _, err := l.ValidateAndReserve(id, usd(1)); err == nil {
				l.Release(id)
			}
		}(i)
	}
	wg.Wait()

	snap := l.Snapshot()
	assert.True(t, snap.Spent.LessThanOrEqual(usd(10)))
	assert.False(t, snap.Spent.IsNegative())
}

func TestBudgetLedger_RollbackOnlyOwnEntry(t *testing.T) {
	l := newLedger(100)

	first, err := l.Reserve("X", usd(10))
	require.NoError(t, err)
	assert.True(t, first.Fresh)
	second, err := l.Reserve("X", usd(10))
	require.NoError(t, err)
	assert.False(t, second.Fresh)

	// the first handle was superseded, the second never created the entry
	l.Rollback(first)
	l.Rollback(second)
	assert.True(t, usd(10).Equal(l.Snapshot().Spent))
	assert.Equal(t, 1, l.Snapshot().Orders)

	l.Release("X")
	own, err := l.Reserve("Y", usd(5))
	require.NoError(t, err)
	l.Rollback(own)
	assert.True(t, l.Snapshot().Spent.IsZero())
	assert.Equal(t, 0, l.Snapshot().Orders)

	// rolling back after an external release is a no-op
	l.Rollback(own)
	assert.True(t, l.Snapshot().Spent.IsZero())
}
