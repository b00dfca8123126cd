// Package httpapi serves the classification gateway's HTTP surface: the
// fanout edge's POST /classify endpoint plus the operational routes
// (metrics, health) every teacher service in this family exposes alongside
// its domain endpoints.
package httpapi

import "time"

// Config holds HTTP server configuration.
type Config struct {
	// Addr is the address to listen on (e.g. ":8080").
	Addr string `env:"ADDR" envDefault:":8080"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed the scheduler's tick duration by a
	// comfortable margin, or slow tick-bound flushes will be cut off.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request on a keep-alive connection.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`

	// MaxHeaderBytes is the maximum size of request headers.
	MaxHeaderBytes int `env:"MAX_HEADER_BYTES" envDefault:"1048576"`

	// MaxBodyBytes caps the size of a classify request body.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// ShutdownTimeout bounds how long graceful shutdown waits for
	// in-flight requests to finish.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	CORS      CORSConfig      `envPrefix:"CORS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envDefault:"*"`
	AllowedMethods   []string `env:"ALLOWED_METHODS" envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"ALLOWED_HEADERS" envDefault:"Accept,Authorization,Content-Type,X-Request-ID"`
	ExposedHeaders   []string `env:"EXPOSED_HEADERS" envDefault:"X-Request-ID"`
	AllowCredentials bool     `env:"ALLOW_CREDENTIALS" envDefault:"false"`
	MaxAge           int      `env:"MAX_AGE" envDefault:"86400"`
}

// RateLimitConfig holds both the global and per-key token-bucket settings.
type RateLimitConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// RequestsPerSecond/BurstSize bound total traffic across all callers.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"1000"`
	BurstSize         int     `env:"BURST_SIZE" envDefault:"2000"`

	// PerKeyRPS/PerKeyBurst bound traffic from a single authenticated
	// caller (see internal/auth); requests with no caller identity are not
	// subject to this limit.
	PerKeyRPS   float64 `env:"PER_KEY_RPS" envDefault:"50"`
	PerKeyBurst int     `env:"PER_KEY_BURST" envDefault:"100"`
}
