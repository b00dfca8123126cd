package fanout

import "errors"

// ErrInternalFailure is surfaced to the caller whenever any sub-request of
// a fanned-out classification fails, regardless of how many of its
// siblings succeeded. Partial results are never exposed.
var ErrInternalFailure = errors.New("fanout: one or more sub-requests failed")

// ErrEmptyInput is returned for a request with no input strings; there is
// nothing to fan out.
var ErrEmptyInput = errors.New("fanout: request has no input")
