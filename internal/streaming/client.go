package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client wraps a NATS connection and JetStream context. Streaming is a
// fire-and-forget side channel (SPEC_FULL.md §3.4): it must never make the
// gateway's own startup or request path depend on a NATS server being
// reachable, so the connection is opened with RetryOnFailedConnect and its
// disconnected state is tracked rather than treated as a hard failure.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config Config
	logger *slog.Logger

	reconnects     int64
	disconnectedAt atomic.Int64 // unix nanos of the current disconnect; 0 while connected
}

// NewClient connects to the configured NATS server and opens a JetStream
// context over the connection. Connection attempts retry in the background
// per cfg.MaxReconnects/ReconnectWait rather than failing gateway startup,
// since a downstream analytics consumer being offline is not a reason to
// refuse classification traffic.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "streaming-client")

	c := &Client{config: cfg, logger: logger}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			c.disconnectedAt.Store(time.Now().UnixNano())
			if err != nil {
				logger.Warn("disconnected from nats, result/failure publishing paused", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.disconnectedAt.Store(0)
			count := atomic.AddInt64(&c.reconnects, 1)
			logger.Info("reconnected to nats", "url", nc.ConnectedUrl(), "reconnect_count", count)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("streaming: connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("streaming: create jetstream context: %w", err)
	}

	c.conn = conn
	c.js = js
	logger.Info("nats client initialized", "url", cfg.URL)
	return c, nil
}

// EnsureStream creates (or updates) the JetStream stream capturing the
// configured subject and its ".dlq" sibling.
func (c *Client) EnsureStream(ctx context.Context) error {
	subjects := []string{c.config.Subject, c.config.Subject + ".dlq"}

	storage := jetstream.FileStorage
	if c.config.Stream.Storage == "memory" {
		storage = jetstream.MemoryStorage
	}

	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     c.config.Stream.Name,
		Subjects: subjects,
		MaxAge:   c.config.Stream.MaxAge,
		MaxBytes: c.config.Stream.MaxBytes,
		Replicas: c.config.Stream.Replicas,
		Storage:  storage,
	})
	if err != nil {
		return fmt.Errorf("streaming: ensure stream: %w", err)
	}
	return nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Close closes the NATS connection.
func (c *Client) Close() {
	c.conn.Close()
}

// HealthCheck reports the client healthy while connected (confirming
// JetStream itself, not just the core NATS socket, is reachable), and
// tolerates a disconnect shorter than twice the configured reconnect wait
// as a transient blip the background reconnect loop is expected to absorb.
// Only a disconnect that outlasts that grace period is surfaced as
// unhealthy — this side channel losing its broker for one reconnect cycle
// is not, by itself, a gateway health problem.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.conn.IsConnected() {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := c.js.AccountInfo(ctx); err != nil {
			return fmt.Errorf("streaming: jetstream account unreachable: %w", err)
		}
		return nil
	}

	return disconnectHealth(c.disconnectedAt.Load(), c.config.ReconnectWait, atomic.LoadInt64(&c.reconnects))
}

// disconnectHealth is the pure decision behind HealthCheck's disconnected
// branch: disconnectedAtNanos of 0 means the client has never connected at
// all, and any other value is graced for 2*reconnectWait before being
// reported as unhealthy.
func disconnectHealth(disconnectedAtNanos int64, reconnectWait time.Duration, reconnects int64) error {
	if disconnectedAtNanos == 0 {
		return fmt.Errorf("streaming: not yet connected to nats")
	}

	grace := 2 * reconnectWait
	if elapsed := time.Since(time.Unix(0, disconnectedAtNanos)); elapsed > grace {
		return fmt.Errorf("streaming: disconnected from nats for %s (reconnects so far: %d)",
			elapsed.Round(time.Second), reconnects)
	}
	return nil
}
