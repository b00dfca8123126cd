package scheduler

import "time"

// Config holds the Batch Scheduler's two enumerated options (spec.md §4.1,
// §6). Both are required and positive; zero values fall back to the
// documented HTTP-surface defaults.
type Config struct {
	// BatchSize is the maximum number of requests drained into a single
	// backend call.
	BatchSize int `env:"BATCH_SIZE" envDefault:"8"`

	// TickDurationMS is the periodic flush interval, in milliseconds.
	TickDurationMS int `env:"TICK_DURATION_MS" envDefault:"100"`
}

// TickDuration returns TickDurationMS as a time.Duration.
func (c Config) TickDuration() time.Duration {
	return time.Duration(c.TickDurationMS) * time.Millisecond
}
