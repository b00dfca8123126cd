package backend

import (
	"context"
	"sync"
	"time"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// LatencyInjectingBackend wraps another Backend and adds a configurable
// artificial delay and/or failure before delegating, the same role the
// teacher's mockNATSPublisher / mockPublisher test doubles play: a small,
// swappable stand-in that lets scheduler tests exercise tick-versus-size
// races and backend-failure propagation deterministically.
type LatencyInjectingBackend struct {
	inner Backend
	delay time.Duration

	mu       sync.Mutex
	failNext error
	calls    int
}

// NewLatencyInjectingBackend wraps inner, delaying every call by delay.
func NewLatencyInjectingBackend(inner Backend, delay time.Duration) *LatencyInjectingBackend {
	return &LatencyInjectingBackend{inner: inner, delay: delay}
}

// FailNextCall arranges for the next ClassifyBatch call to return err as a
// batch-level failure instead of delegating to inner.
func (b *LatencyInjectingBackend) FailNextCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = err
}

// Calls returns the number of times ClassifyBatch has been invoked.
func (b *LatencyInjectingBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *LatencyInjectingBackend) ClassifyBatch(ctx context.Context, requests []classify.Request) ([]Result, error) {
	b.mu.Lock()
	b.calls++
	err := b.failNext
	b.failNext = nil
	b.mu.Unlock()

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return b.inner.ClassifyBatch(ctx, requests)
}
