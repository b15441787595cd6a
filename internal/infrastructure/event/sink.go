package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrSinkClosed is returned by Record after Close
var ErrSinkClosed = errors.New("activity sink closed")

// ActivitySink stores activity records
type ActivitySink interface {
	Record(ctx context.Context, rec ActivityRecord) error
}

// ZapActivitySink writes records to the application log
type ZapActivitySink struct {
	logger *zap.Logger
}

// NewZapActivitySink creates a sink logging on logger
func NewZapActivitySink(logger *zap.Logger) *ZapActivitySink {
	return &ZapActivitySink{logger: logger.Named("activity")}
}

// Record logs rec at Info
func (s *ZapActivitySink) Record(_ context.Context, rec ActivityRecord) error {
	s.logger.Info(rec.Description,
		zap.String("event_id", rec.EventID),
		zap.String("event_name", rec.EventName),
		zap.String("aggregate_type", rec.AggregateType),
		zap.Int64("aggregate_id", rec.AggregateID),
		zap.String("actor", rec.Actor),
		zap.Any("properties", rec.Properties),
		zap.Time("occurred_at", rec.OccurredAt),
	)
	return nil
}

// FanoutSink hands each record to every sink and joins their errors
type FanoutSink []ActivitySink

// Record implements ActivitySink
func (f FanoutSink) Record(ctx context.Context, rec ActivityRecord) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncActivitySink queues records for a background worker so recording never
// blocks the request path. A full queue drops the record.
type AsyncActivitySink struct {
	next    ActivitySink
	logger  *zap.Logger
	queue   chan ActivityRecord
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncActivitySink starts a worker draining into next. buffer below 1 means 1.
func NewAsyncActivitySink(next ActivitySink, buffer int, logger *zap.Logger) *AsyncActivitySink {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AsyncActivitySink{
		next:   next,
		logger: logger,
		queue:  make(chan ActivityRecord, buffer),
		done:   make(chan struct{}),
	}
	go s.work()
	return s
}

// Record enqueues rec without waiting
func (s *AsyncActivitySink) Record(_ context.Context, rec ActivityRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- rec:
	default:
		s.dropped.Add(1)
		s.logger.Warn("activity queue full, record dropped",
			zap.String("event_name", rec.EventName),
			zap.Int64("aggregate_id", rec.AggregateID))
	}
	return nil
}

// Dropped returns how many records were lost to a full queue
func (s *AsyncActivitySink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting records and waits for the queue to drain or ctx to end
func (s *AsyncActivitySink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncActivitySink) work() {
	defer close(s.done)
	for rec := range s.queue {
		// the request that raised the event is gone by now
		if err := s.next.Record(context.Background(), rec); err != nil {
			s.logger.Warn("failed to record activity",
				zap.String("event_name", rec.EventName),
				zap.Error(err))
		}
	}
}

var (
	_ ActivitySink = (*ZapActivitySink)(nil)
	_ ActivitySink = FanoutSink(nil)
	_ ActivitySink = (*AsyncActivitySink)(nil)
)
