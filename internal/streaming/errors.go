package streaming

import "errors"

// Sentinel errors for the streaming package.
var (
	ErrNotConnected = errors.New("streaming: not connected to nats")
)
