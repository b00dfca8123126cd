// Package streaming publishes completed classification results, and failed
// sub-requests, to NATS JetStream for downstream analytics consumers. It is
// a fire-and-forget side channel: publish failures are logged, never
// surfaced to the HTTP caller, and never gate or delay delivery of the
// scheduler's own result sink.
package streaming

import "time"

// Config holds NATS connection and publishing configuration.
type Config struct {
	// Enabled toggles result/failure publishing. Disabled by default so the
	// core scheduler contract is testable without a NATS server.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// URL is the NATS server URL.
	URL string `env:"URL" envDefault:"nats://localhost:4222"`

	// Name is the client connection name for monitoring.
	Name string `env:"CLIENT_NAME" envDefault:"classify-gateway"`

	// MaxReconnects is the maximum number of reconnection attempts, or -1
	// to retry forever. Defaults to forever: streaming is a fire-and-forget
	// side channel (SPEC_FULL.md §3.4), so losing NATS should degrade
	// publishing, not make the client give up and go permanently silent.
	MaxReconnects int `env:"MAX_RECONNECTS" envDefault:"-1"`

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration `env:"RECONNECT_WAIT" envDefault:"2s"`

	// Timeout is the connection timeout.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// Subject is the base subject successful responses are published to.
	// Per-request failures observed by the fanout edge are published to
	// "<Subject>.dlq".
	Subject string `env:"SUBJECT" envDefault:"classify.results"`

	Stream StreamConfig `envPrefix:"STREAM_"`
}

// StreamConfig holds JetStream stream configuration.
type StreamConfig struct {
	Name     string        `env:"NAME" envDefault:"CLASSIFY_RESULTS"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"168h"`
	MaxBytes int64         `env:"MAX_BYTES" envDefault:"1073741824"`
	Replicas int           `env:"REPLICAS" envDefault:"1"`
	Storage  string        `env:"STORAGE" envDefault:"file"`
}
