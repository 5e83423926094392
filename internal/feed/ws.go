// Package feed consumes the upstream order stream and hands each order event
// to the admission controller.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	ReconnBaseDelay = 1 * time.Second
	ReconnMaxDelay  = 30 * time.Second
	PingPeriod      = 15 * time.Second
)

const (
	EventCreated   = "created"
	EventFulfilled = "fulfilled"
	EventCancelled = "cancelled"
	EventConfirmed = "confirmed"
)

// Admitter is the part of the admission controller the feed drives.
type Admitter interface {
	Evaluate(ctx context.Context, cand model.Candidate) model.Decision
	Release(orderID string)
}

// Message is one feed event. Created events carry the full order; the
// lifecycle events only need the id.
type Message struct {
	Type    string              `json:"type"`
	OrderID string              `json:"order_id,omitempty"`
	Order   *model.OrderPayload `json:"order,omitempty"`
}

// Service keeps a websocket connection to the order feed open, reconnecting
// with exponential backoff, and evaluates created orders concurrently.
type Service struct {
	url      string
	chains   []model.ChainID
	codec    *chain.Codec
	admitter Admitter
	logger   *slog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool

	// orders with an evaluation queued or running, by normalized id
	flightMu sync.Mutex
	inflight map[string]*flight

	ctx    context.Context
	cancel context.CancelFunc
	work   *errgroup.Group
	done   chan struct{}
}

func NewService(url string, chains []model.ChainID, codec *chain.Codec, admitter Admitter, concurrency int) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	if concurrency <= 0 {
		concurrency = 16
	}
	work := new(errgroup.Group)
	work.SetLimit(concurrency)
	return &Service{
		url:      url,
		chains:   chains,
		codec:    codec,
		admitter: admitter,
		logger:   logger.Named(nil, "service", "feed"),
		ctx:      ctx,
		cancel:   cancel,
		work:     work,
		done:     make(chan struct{}),
		inflight: make(map[string]*flight),
	}
}

type flight struct {
	evaluations int
	releases    int
}

// Start launches the connection loop in a background goroutine.
func (s *Service) Start() {
	go s.runLoop()
}

// Stop closes the connection and waits for in-flight evaluations.
func (s *Service) Stop() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
	_ = s.work.Wait()
}

func (s *Service) runLoop() {
	defer close(s.done)
	delay := ReconnBaseDelay

	for {
		if s.ctx.Err() != nil {
			return
		}

		if err := s.connect(); err != nil {
			s.logger.Error("feed connection failed", slog.String("error", err.Error()), slog.Duration("retry_in", delay))
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > ReconnMaxDelay {
				delay = ReconnMaxDelay
			}
			continue
		}

		delay = ReconnBaseDelay
		if err := s.sendSubscribe(); err != nil {
			s.logger.Error("feed subscribe failed", slog.String("error", err.Error()))
			s.closeConn()
			continue
		}

		s.readLoop()
		s.closeConn()
	}
}

func (s *Service) connect() error {
	conn, _, err := websocket.DefaultDialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		return err
	}

	readTimeout := PingPeriod + 10*time.Second
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.mu.Unlock()

	go s.pingLoop(conn)
	s.logger.Info("feed connected", slog.String("url", s.url))
	return nil
}

func (s *Service) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.isConnected || s.conn != conn {
				s.mu.Unlock()
				return
			}
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Service) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.isConnected = false
}

func (s *Service) sendSubscribe() error {
	chains := make([]uint64, 0, len(s.chains))
	for _, id := range s.chains {
		chains = append(chains, uint64(id))
	}
	msg := map[string]interface{}{
		"type":   "subscribe",
		"chains": chains,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errors.New("no connection")
	}
	return s.conn.WriteJSON(msg)
}

func (s *Service) readLoop() {
	readTimeout := PingPeriod + 10*time.Second
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Error("feed read error", slog.String("error", err.Error()))
			}
			return
		}

		var batch []Message
		if err := json.Unmarshal(raw, &batch); err != nil {
			var single Message
			if err2 := json.Unmarshal(raw, &single); err2 != nil {
				continue
			}
			batch = []Message{single}
		}
		for _, m := range batch {
			s.dispatch(m)
		}
	}
}

// dispatch evaluates created orders on the worker group and applies
// lifecycle events inline. Blocks when the worker group is full. An order is
// marked in flight before its evaluation is queued, so a lifecycle event that
// follows it on the stream is applied only after the evaluation finishes.
func (s *Service) dispatch(m Message) {
	switch strings.ToLower(m.Type) {
	case EventCreated:
		if m.Order == nil {
			s.logger.Warn("created event without order")
			return
		}
		order, ok := s.decode(*m.Order)
		if !ok {
			return
		}
		confirmed := m.Order.Confirmed
		s.begin(order.ID.Hex())
		s.work.Go(func() error {
			s.evaluate(s.ctx, order, confirmed)
			return nil
		})
	case EventFulfilled, EventCancelled, EventConfirmed:
		s.HandleLifecycle(m)
	}
}

// HandleCreated decodes one order and runs it through admission.
func (s *Service) HandleCreated(ctx context.Context, p model.OrderPayload) {
	order, ok := s.decode(p)
	if !ok {
		return
	}
	s.begin(order.ID.Hex())
	s.evaluate(ctx, order, p.Confirmed)
}

func (s *Service) decode(p model.OrderPayload) (*model.Order, bool) {
	order, err := s.codec.DecodeOrder(p)
	if err != nil {
		s.logger.Warn("undecodable order", slog.String("order_id", p.OrderID), slog.String("error", err.Error()))
		return nil, false
	}
	return order, true
}

func (s *Service) evaluate(ctx context.Context, order *model.Order, confirmed bool) {
	defer s.settle(order.ID.Hex())
	s.admitter.Evaluate(ctx, model.Candidate{Order: order, Confirmed: confirmed})
}

func (s *Service) begin(orderID string) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f, ok := s.inflight[orderID]
	if !ok {
		f = &flight{}
		s.inflight[orderID] = f
	}
	f.evaluations++
}

// settle ends one evaluation and, once none remain, applies the releases
// that arrived while the order was in flight.
func (s *Service) settle(orderID string) {
	s.flightMu.Lock()
	f := s.inflight[orderID]
	f.evaluations--
	if f.evaluations > 0 {
		s.flightMu.Unlock()
		return
	}
	delete(s.inflight, orderID)
	releases := f.releases
	s.flightMu.Unlock()

	for i := 0; i < releases; i++ {
		s.admitter.Release(orderID)
	}
	if releases > 0 {
		s.logger.Debug("deferred release applied", slog.String("order_id", orderID), slog.Int("events", releases))
	}
}

// deferRelease queues a release behind an in-flight evaluation. It reports
// false when the order is not in flight.
func (s *Service) deferRelease(orderID string) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	f, ok := s.inflight[orderID]
	if !ok {
		return false
	}
	f.releases++
	return true
}

// HandleLifecycle releases the budget held by an order that no longer
// carries unconfirmed exposure.
func (s *Service) HandleLifecycle(m Message) {
	id := m.OrderID
	if id == "" && m.Order != nil {
		id = m.Order.OrderID
	}
	orderID, err := chain.NormalizeOrderID(id)
	if err != nil {
		s.logger.Warn("lifecycle event with bad order id", slog.String("type", m.Type), slog.String("order_id", id))
		return
	}
	if s.deferRelease(orderID) {
		s.logger.Debug("release deferred until evaluation finishes", slog.String("type", m.Type), slog.String("order_id", orderID))
		return
	}
	s.admitter.Release(orderID)
	s.logger.Debug("order released", slog.String("type", m.Type), slog.String("order_id", orderID))
}
