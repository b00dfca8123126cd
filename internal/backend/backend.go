// Package backend defines the batched execution adapter the scheduler
// drives, and ships a couple of in-process implementations that exercise
// the interface without requiring a real accelerator or model runtime.
package backend

import (
	"context"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// Result is either a successful classification or a per-request error,
// occupying one position in the slice a Backend returns from
// ClassifyBatch. Exactly one of Response/Err is set.
type Result struct {
	Response *classify.Response
	Err      error
}

// Backend is the contract the scheduler drives. Implementations are
// assumed to perform better per-input with larger batches, up to a
// hardware-specific limit, and must be safe to invoke from the scheduler's
// single driver goroutine (no re-entrancy requirement).
//
// ClassifyBatch returns a slice the same length and order as requests; a
// non-nil error return indicates a batch-level failure and the slice is
// ignored. Otherwise each Result in the slice corresponds positionally to
// requests, and a per-request error at position i indicates only that
// request failed.
type Backend interface {
	ClassifyBatch(ctx context.Context, requests []classify.Request) ([]Result, error)
}
