package scheduler

import "errors"

// Sentinel errors for the scheduler package, matching spec.md §7.
var (
	// ErrQueueClosed is returned by Submit after the scheduler has stopped
	// accepting new work (its admission channel is closed).
	ErrQueueClosed = errors.New("scheduler: queue closed")

	// ErrSinkDropped documents the case where a submitter's result sink
	// receiver is gone by the time the driver delivers an outcome. The
	// driver itself never observes this (delivery is a non-blocking
	// buffered send), so this error is never returned by Submit; it names
	// the case for API and log-message consistency with the rest of the
	// error taxonomy.
	ErrSinkDropped = errors.New("scheduler: result sink dropped")

	// ErrResultCountMismatch signals a Backend implementation bug: the
	// returned result slice did not match the submitted batch length.
	ErrResultCountMismatch = errors.New("scheduler: backend returned wrong number of results")
)

// BackendError wraps an error returned by the batched backend, either for a
// single request within a batch or, when the whole batch call failed, for
// every request in it.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return "scheduler: backend failure: " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
