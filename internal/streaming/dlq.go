package streaming

import "time"

// FailureRecord is the shape republished to the "<subject>.dlq" subject
// for every per-request BackendFailure the fanout edge observes. It is
// deliberately minimal: a record of what was attempted and why it failed,
// for an operator to inspect offline — not a structure designed for
// automated redelivery.
type FailureRecord struct {
	Model     string    `json:"model"`
	Input     string    `json:"input"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFailureRecord builds a FailureRecord for a single failed sub-request.
func NewFailureRecord(model, input string, cause error) FailureRecord {
	return FailureRecord{
		Model:     model,
		Input:     input,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	}
}
