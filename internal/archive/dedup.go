package archive

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// dedupGuard is a sliding-window bloom filter that guards against
// re-archiving the same response id twice across retried uploads. It is an
// archival-integrity safeguard over already-computed responses, not a
// classification cache: nothing here ever prevents or reuses a
// classification decision.
type dedupGuard struct {
	mu       sync.Mutex
	current  *bloom.BloomFilter
	previous *bloom.BloomFilter
	capacity uint
	fpRate   float64
}

func newDedupGuard(capacity uint, fpRate float64) *dedupGuard {
	return &dedupGuard{
		current:  bloom.NewWithEstimates(capacity, fpRate),
		previous: bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
		fpRate:   fpRate,
	}
}

// seen reports whether id has already been recorded in the current or
// previous window, recording it in the current window if not.
func (d *dedupGuard) seen(id string) bool {
	key := []byte(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current.Test(key) || d.previous.Test(key) {
		return true
	}
	d.current.Add(key)
	return false
}

// rotate swaps the current filter to previous and starts a fresh current
// filter, bounding how long an id is remembered.
func (d *dedupGuard) rotate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previous = d.current
	d.current = bloom.NewWithEstimates(d.capacity, d.fpRate)
}

// startRotation runs rotate every window/2. An id is forgotten at the second
// rotation after it was recorded, so it is remembered for at least window/2
// and at most a full window.
func (d *dedupGuard) startRotation(stop <-chan struct{}, window time.Duration) {
	if window <= 0 {
		window = 10 * time.Minute
	}
	ticker := time.NewTicker(window / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.rotate()
			}
		}
	}()
}
