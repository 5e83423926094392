package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderID = "0x00000000000000000000000000000000000000000000000000000000000000aa"

type recordingAdmitter struct {
	mu        sync.Mutex
	evaluated []model.Candidate
	released  []string
}

func (a *recordingAdmitter) Evaluate(_ context.Context, cand model.Candidate) model.Decision {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluated = append(a.evaluated, cand)
	return model.Decision{OrderID: cand.Order.ID.Hex(), Admitted: true, Reason: model.ReasonAdmitted}
}

func (a *recordingAdmitter) Release(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, orderID)
}

func (a *recordingAdmitter) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.evaluated), len(a.released)
}

// reservingAdmitter takes a while to evaluate and then reserves against a
// real ledger, like the admission controller does.
type reservingAdmitter struct {
	ledger *service.BudgetLedger
	delay  time.Duration
}

func (a *reservingAdmitter) Evaluate(_ context.Context, cand model.Candidate) model.Decision {
	time.Sleep(a.delay)
	id := cand.Order.ID.Hex()
	_, _ = a.ledger.ValidateAndReserve(id, decimal.NewFromInt(10))
	return model.Decision{OrderID: id, Admitted: true, Reason: model.ReasonAdmitted}
}

func (a *reservingAdmitter) Release(orderID string) {
	a.ledger.Release(orderID)
}

func testPayload() model.OrderPayload {
	return model.OrderPayload{
		OrderID:     orderID,
		Maker:       "0x1111111111111111111111111111111111111111",
		GiveChainID: uint64(chain.Ethereum),
		GiveToken:   "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		GiveAmount:  "1000000",
		TakeChainID: uint64(chain.Polygon),
		TakeToken:   "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		TakeAmount:  "990000",
		Receiver:    "0x2222222222222222222222222222222222222222",
		Confirmed:   true,
	}
}

func TestHandleCreated(t *testing.T) {
	a := &recordingAdmitter{}
	s := NewService("", nil, chain.NewCodec(nil), a, 1)

	s.HandleCreated(context.Background(), testPayload())
	require.Len(t, a.evaluated, 1)
	assert.Equal(t, orderID, a.evaluated[0].Order.ID.Hex())
	assert.True(t, a.evaluated[0].Confirmed)

	bad := testPayload()
	bad.Receiver = "nope"
	s.HandleCreated(context.Background(), bad)
	assert.Len(t, a.evaluated, 1)
}

func TestHandleLifecycle(t *testing.T) {
	a := &recordingAdmitter{}
	s := NewService("", nil, chain.NewCodec(nil), a, 1)

	s.HandleLifecycle(Message{Type: EventFulfilled, OrderID: strings.ToUpper(orderID[2:])})
	p := testPayload()
	s.HandleLifecycle(Message{Type: EventCancelled, Order: &p})
	s.HandleLifecycle(Message{Type: EventConfirmed, OrderID: "garbage"})

	assert.Equal(t, []string{orderID, orderID}, a.released)
}

func TestService_ConsumesFeed(t *testing.T) {
	subscribed := make(chan map[string]any, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		p := testPayload()
		_ = conn.WriteJSON([]Message{
			{Type: EventCreated, Order: &p},
			{Type: "unknown"},
			{Type: EventConfirmed, OrderID: orderID},
		})
		_ = conn.WriteJSON(Message{Type: EventFulfilled, OrderID: orderID})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	a := &recordingAdmitter{}
	s := NewService("ws"+strings.TrimPrefix(srv.URL, "http"), []model.ChainID{chain.Ethereum, chain.Polygon}, chain.NewCodec(nil), a, 2)
	s.Start()

	select {
	case sub := <-subscribed:
		assert.Equal(t, "subscribe", sub["type"])
		assert.Equal(t, []any{float64(1), float64(137)}, sub["chains"])
	case <-time.After(5 * time.Second):
		t.Fatal("feed never subscribed")
	}

	assert.Eventually(t, func() bool {
		evaluated, released := a.counts()
		return evaluated == 1 && released == 2
	}, 5*time.Second, 10*time.Millisecond)

	s.Stop()
}

func TestDispatch_LifecycleWaitsForEvaluation(t *testing.T) {
	ledger := service.NewBudgetLedger(decimal.NewNullDecimal(decimal.NewFromInt(100)), logger.Discard())
	s := NewService("", nil, chain.NewCodec(nil), &reservingAdmitter{ledger: ledger, delay: 30 * time.Millisecond}, 4)

	p := testPayload()
	p.Confirmed = false
	s.dispatch(Message{Type: EventCreated, Order: &p})
	s.dispatch(Message{Type: EventFulfilled, OrderID: orderID})
	require.NoError(t, s.work.Wait())

	snap := ledger.Snapshot()
	assert.True(t, snap.Spent.IsZero(), "spent=%s", snap.Spent)
	assert.Equal(t, 0, snap.Orders)

	// once nothing is in flight the release applies immediately
	s.dispatch(Message{Type: EventCreated, Order: &p})
	require.NoError(t, s.work.Wait())
	assert.Equal(t, 1, ledger.Snapshot().Orders)
	s.dispatch(Message{Type: EventCancelled, OrderID: orderID})
	assert.Equal(t, 0, ledger.Snapshot().Orders)
	assert.Empty(t, s.inflight)
}
