package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/google/uuid"
)

// DecisionRepo persists admission records.
type DecisionRepo interface {
	Insert(ctx context.Context, rec *model.AdmissionRecord) error
	List(ctx context.Context, orderID string, limit int) ([]*model.AdmissionRecord, error)
}

// DecisionLog keeps recent decisions in memory and forwards them to an
// optional repository from a single background writer, so recording never
// blocks an evaluation.
type DecisionLog struct {
	ch     chan *model.AdmissionRecord
	buffer *decisionBuffer
	repo   DecisionRepo
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewDecisionLog(size int, repo DecisionRepo) *DecisionLog {
	if size <= 0 {
		size = 1000
	}
	d := &DecisionLog{
		ch:     make(chan *model.AdmissionRecord, size),
		buffer: newDecisionBuffer(size),
		repo:   repo,
		logger: logger.Named(nil, "service", "decision_log"),
		done:   make(chan struct{}),
	}
	go d.process()
	return d
}

func (d *DecisionLog) Record(dec model.Decision) {
	rec := &model.AdmissionRecord{
		ID:        uuid.NewString(),
		OrderID:   dec.OrderID,
		Admitted:  dec.Admitted,
		Reason:    dec.Reason,
		Validator: dec.Validator,
		USDWorth:  dec.USDWorth,
		GiveChain: uint64(dec.GiveChain),
		TakeChain: uint64(dec.TakeChain),
		CreatedAt: dec.At,
	}
	d.buffer.Add(rec)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("decision log closed, record kept in memory only", slog.String("order_id", rec.OrderID))
		return
	}
	select {
	case d.ch <- rec:
	default:
		d.logger.Warn("decision log queue full, dropping record", slog.String("order_id", rec.OrderID))
	}
}

func (d *DecisionLog) List(ctx context.Context, orderID string, limit int) ([]*model.AdmissionRecord, error) {
	if d.repo != nil {
		records, err := d.repo.List(ctx, orderID, limit)
		if err == nil {
			return records, nil
		}
		d.logger.Warn("decision repo list failed, serving from memory", slog.String("error", err.Error()))
	}
	return d.buffer.List(orderID, limit), nil
}

func (d *DecisionLog) process() {
	defer close(d.done)
	for rec := range d.ch {
		if d.repo == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.repo.Insert(ctx, rec); err != nil {
			d.logger.Error("failed to persist decision", slog.String("order_id", rec.OrderID), slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Close stops persisting records and waits for the writer to drain. Records
// arriving afterwards still reach the in-memory buffer.
func (d *DecisionLog) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.ch)
		d.mu.Unlock()
		<-d.done
	})
}

type decisionBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AdmissionRecord
	nextIndex int
}

func newDecisionBuffer(maxSize int) *decisionBuffer {
	return &decisionBuffer{
		maxSize: maxSize,
		records: make([]*model.AdmissionRecord, 0, maxSize),
	}
}

func (b *decisionBuffer) Add(rec *model.AdmissionRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, rec)
		return
	}
	b.records[b.nextIndex] = rec
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns newest first.
func (b *decisionBuffer) List(orderID string, limit int) []*model.AdmissionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AdmissionRecord, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		rec := b.records[idx]
		if orderID != "" && rec.OrderID != orderID {
			continue
		}
		results = append(results, rec)
		if len(results) >= limit {
			break
		}
	}
	return results
}
