// Package fanout implements the fanout edge: it turns one multi-input
// client classification request into N concurrent single-input scheduler
// submissions, then merges their outcomes back into a single response.
package fanout

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// Submitter is the scheduler capability the fanout edge depends on. It
// abstracts *scheduler.Scheduler so edge tests can exercise merge and
// failure-propagation logic without a real driver goroutine.
type Submitter interface {
	Submit(ctx context.Context, req classify.Request) (*classify.Response, error)
}

// Observer receives completed fanout outcomes for side-channel consumption
// (archival, streaming) that must never affect the response already
// returned to the caller. A nil Observer disables these hooks entirely.
type Observer interface {
	// ObserveSuccess is called once per successfully merged Response.
	ObserveSuccess(resp *classify.Response)
	// ObserveFailure is called once per sub-request that failed, in its own
	// goroutine, when Classify collapses the whole request into
	// ErrInternalFailure.
	ObserveFailure(model, input string, cause error)
}

// Edge is the fanout edge. It holds no state beyond its Submitter and
// optional Observer; all of its work is per-call.
type Edge struct {
	submitter Submitter
	observer  Observer
	logger    *slog.Logger
}

// New constructs a fanout Edge over submitter. observer may be nil to
// disable archival/streaming side-channel hooks.
func New(submitter Submitter, observer Observer, logger *slog.Logger) *Edge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Edge{submitter: submitter, observer: observer, logger: logger.With("component", "fanout")}
}

// subOutcome pairs a sub-request's position in the original input sequence
// with its scheduler outcome.
type subOutcome struct {
	position int
	response *classify.Response
	err      error
}

// Classify splits req into one sub-request per input string, submits all
// of them to the scheduler concurrently, and merges the results. If any
// sub-request fails, a single ErrInternalFailure is returned and no
// partial response is produced.
func (e *Edge) Classify(ctx context.Context, req classify.Request) (*classify.Response, error) {
	if len(req.Input) == 0 {
		return nil, ErrEmptyInput
	}

	outcomes := e.submitAll(ctx, req)

	results := make([]classify.Result, len(req.Input))
	var usage classify.Usage

	failed := false
	for _, out := range outcomes {
		if out.err == nil {
			continue
		}
		failed = true
		e.logger.Warn("sub-request failed, surfacing internal failure",
			"position", out.position, "input_count", len(req.Input), "error", out.err)
		if e.observer != nil {
			go e.observer.ObserveFailure(req.Model, req.Input[out.position], out.err)
		}
	}
	if failed {
		return nil, ErrInternalFailure
	}

	for _, out := range outcomes {
		if len(out.response.Data) == 0 {
			e.logger.Error("backend returned no result for single-input sub-request",
				"position", out.position)
			return nil, ErrInternalFailure
		}

		result := out.response.Data[0]
		result.Index = out.position
		results[out.position] = result

		usage.PromptTokens += out.response.Usage.PromptTokens
		usage.CompletionTokens += out.response.Usage.CompletionTokens
	}

	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	resp := &classify.Response{
		ID:      uuid.New().String(),
		Object:  classify.ObjectList,
		Created: time.Now().Unix(),
		Model:   req.Model,
		Data:    results,
		Usage:   usage,
	}

	if e.observer != nil {
		go e.observer.ObserveSuccess(resp)
	}

	return resp, nil
}

// submitAll fans req out into one sub-request per input string, admits all
// of them to the scheduler concurrently so they have a chance to coalesce
// into the same batch, and collects every outcome before returning.
func (e *Edge) submitAll(ctx context.Context, req classify.Request) []subOutcome {
	outcomes := make([]subOutcome, len(req.Input))
	done := make(chan int, len(req.Input))

	for i, input := range req.Input {
		go func(position int, input string) {
			resp, err := e.submitter.Submit(ctx, classify.Request{
				Model: req.Model,
				Input: []string{input},
			})
			outcomes[position] = subOutcome{position: position, response: resp, err: err}
			done <- position
		}(i, input)
	}

	for range req.Input {
		<-done
	}

	return outcomes
}
