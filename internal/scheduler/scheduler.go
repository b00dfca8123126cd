// Package scheduler implements the dynamic batching scheduler: a single
// driver goroutine that accumulates submitted requests into batches and
// flushes them to a backend either when a batch fills up or when a tick
// timer fires, whichever happens first.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/doublewordai/classify-gateway/internal/backend"
	"github.com/doublewordai/classify-gateway/internal/classify"
	"github.com/doublewordai/classify-gateway/internal/observability"
)

// outcome is what the driver delivers to a single submitter: exactly one of
// response or err is set.
type outcome struct {
	response *classify.Response
	err      error
}

// queuedRequest pairs a submitted request with its single-shot result sink.
// The sink is buffered by one so the driver's delivery send never blocks,
// even if the submitter has already abandoned it (its context was canceled
// and Submit has already returned); an undelivered outcome is simply
// garbage collected along with the sink.
type queuedRequest struct {
	request classify.Request
	sink    chan outcome
}

// Scheduler is the dynamic batching scheduler. A single call to Run drives
// it; Submit is safe to call concurrently from any number of goroutines.
//
// Admission into the driver's custody goes through admit, an unbuffered
// (rendezvous) channel: a send only completes once the driver is ready to
// receive, so a successful Submit call implies the request is already in
// the driver's internal queue. This is load-bearing for every ordering and
// size-bound guarantee the scheduler makes; it must not be replaced with a
// buffered or unbounded queue on the submitter side.
type Scheduler struct {
	cfg     Config
	backend backend.Backend
	logger  *slog.Logger
	metrics *observability.Metrics

	admit chan *queuedRequest

	closeOnce sync.Once
	closedCh  chan struct{}
}

// New constructs a Scheduler. Run must be called (typically in its own
// goroutine) before any Submit call can make progress. metrics is optional;
// pass nil to disable batch-size and flush-latency instrumentation.
func New(cfg Config, be backend.Backend, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.TickDurationMS <= 0 {
		cfg.TickDurationMS = 100
	}

	return &Scheduler{
		cfg:      cfg,
		backend:  be,
		logger:   logger.With("component", "scheduler"),
		metrics:  metrics,
		admit:    make(chan *queuedRequest),
		closedCh: make(chan struct{}),
	}
}

// Submit hands req to the scheduler and blocks until a batch containing it
// has been flushed and the backend's result for it is known, the scheduler
// has been stopped (ErrQueueClosed), or ctx is canceled.
//
// ctx is only consulted once the driver has admitted the request: while
// waiting at the rendezvous for admission, only Stop ends the wait.
//
// A canceled ctx only stops this call from waiting; it does not retract the
// request once the driver has accepted it; the request's sink is written
// once the driver's flush completes, and is simply never read.
func (s *Scheduler) Submit(ctx context.Context, req classify.Request) (*classify.Response, error) {
	qr := &queuedRequest{request: req, sink: make(chan outcome, 1)}

	if !s.trySend(qr) {
		return nil, ErrQueueClosed
	}

	select {
	case out := <-qr.sink:
		return out.response, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// trySend attempts the rendezvous send, racing it against shutdown. It
// reports whether the driver accepted the request.
func (s *Scheduler) trySend(qr *queuedRequest) bool {
	select {
	case s.admit <- qr:
		return true
	case <-s.closedCh:
		return false
	}
}

// Stop closes the admission channel's shutdown signal. Any Submit call
// currently waiting to be admitted fails with ErrQueueClosed; any call
// already admitted is unaffected and will still be delivered an outcome
// once Run's final drain flushes it. Stop does not wait for Run to return;
// callers that need that should select on the error Run's caller receives.
func (s *Scheduler) Stop() {
	s.closeOnce.Do(func() {
		close(s.closedCh)
	})
}

// Run is the scheduler's single driver loop. It owns all mutable state
// (the internal FIFO queue) without any locking, since it is the only
// goroutine that ever touches it. Run returns when Stop has been called
// and the final drain has been flushed, or when ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickDuration())
	defer ticker.Stop()

	var queue []*queuedRequest

	for {
		select {
		case qr := <-s.admit:
			queue = append(queue, qr)
			s.logger.Debug("request admitted", "queue_size", len(queue))

			if len(queue) >= s.cfg.BatchSize {
				s.logger.Debug("batch size reached, flushing", "queue_size", len(queue))
				queue = s.flush(ctx, queue)
			}

		case <-ticker.C:
			if len(queue) > 0 {
				s.logger.Debug("tick fired, flushing partial batch", "queue_size", len(queue))
				queue = s.flush(ctx, queue)
			}

		case <-s.closedCh:
			if len(queue) > 0 {
				s.logger.Info("queue closed, flushing remaining requests", "queue_size", len(queue))
				queue = s.flush(ctx, queue)
			}
			s.logger.Info("driver exiting")
			return nil

		case <-ctx.Done():
			s.logger.Info("context canceled, driver exiting without final flush")
			return ctx.Err()
		}
	}
}

// flush drains up to BatchSize requests from the front of queue, invokes
// the backend once with them, and delivers an outcome to every sink. It
// returns the requests left in queue after the drained prefix is removed.
func (s *Scheduler) flush(ctx context.Context, queue []*queuedRequest) []*queuedRequest {
	n := s.cfg.BatchSize
	if n > len(queue) {
		n = len(queue)
	}
	batch := queue[:n]
	remaining := queue[n:]

	requests := make([]classify.Request, len(batch))
	for i, qr := range batch {
		requests[i] = qr.request
	}

	start := time.Now()
	results, err := s.backend.ClassifyBatch(ctx, requests)
	elapsed := time.Since(start)
	s.recordFlush(ctx, len(batch), elapsed)

	if err != nil {
		s.logger.Error("backend call failed", "batch_size", len(batch), "elapsed", elapsed, "error", err)
		s.recordBackendErrors(ctx, len(batch))
		beErr := &BackendError{Err: err}
		for _, qr := range batch {
			deliver(qr, outcome{err: beErr})
		}
		return remaining
	}

	if len(results) != len(batch) {
		s.logger.Error("backend returned mismatched result count",
			"batch_size", len(batch), "result_count", len(results))
		s.recordBackendErrors(ctx, len(batch))
		beErr := &BackendError{Err: ErrResultCountMismatch}
		for _, qr := range batch {
			deliver(qr, outcome{err: beErr})
		}
		return remaining
	}

	s.logger.Debug("batch flushed", "batch_size", len(batch), "elapsed", elapsed)

	for i, qr := range batch {
		res := results[i]
		if res.Err != nil {
			s.recordBackendErrors(ctx, 1)
			deliver(qr, outcome{err: &BackendError{Err: res.Err}})
			continue
		}
		deliver(qr, outcome{response: res.Response})
	}

	return remaining
}

func (s *Scheduler) recordFlush(ctx context.Context, batchSize int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ClassificationBatchSize.Record(ctx, int64(batchSize))
	s.metrics.ClassificationFlushLatency.Record(ctx, float64(elapsed.Milliseconds()))
}

func (s *Scheduler) recordBackendErrors(ctx context.Context, n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ClassificationBackendErrors.Add(ctx, int64(n))
}

// deliver writes out to qr's sink without blocking. The sink is buffered by
// one, so this always succeeds immediately; if the submitter is no longer
// listening (its Submit call already returned on a canceled context) the
// value is discarded once the sink is garbage collected.
func deliver(qr *queuedRequest, out outcome) {
	qr.sink <- out
}
