package httpapi

import "errors"

// ErrMalformedRequest is written by handleClassify for a request
// body that is not valid JSON or is missing required fields. It is a
// transport-edge concern, distinct from the scheduler/fanout error
// taxonomy: it never reaches the fanout edge at all.
var ErrMalformedRequest = errors.New("httpapi: malformed classify request")
