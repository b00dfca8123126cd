package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// Publisher publishes completed responses and per-request failures to
// JetStream. Every method here is meant to be called fire-and-forget from
// the HTTP path: callers log the error and move on, never blocking or
// failing the response already sent to the client.
type Publisher struct {
	js      jetstream.JetStream
	subject string
	logger  *slog.Logger
}

// NewPublisher creates a new Publisher over js, publishing successful
// responses to subject and failures to "<subject>.dlq".
func NewPublisher(js jetstream.JetStream, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{js: js, subject: subject, logger: logger.With("component", "streaming-publisher")}
}

// PublishResult publishes a merged classification response. Unlike the
// teacher's protobuf wire format, results are published as JSON: the
// payload here is already the client-facing wire schema, so re-marshaling
// as JSON costs nothing and lets any consumer decode it without a proto
// schema registry.
func (p *Publisher) PublishResult(ctx context.Context, resp *classify.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("streaming: marshal response: %w", err)
	}

	ack, err := p.js.Publish(ctx, p.subject, data)
	if err != nil {
		return fmt.Errorf("streaming: publish response: %w", err)
	}

	p.logger.Debug("response published",
		"response_id", resp.ID,
		"subject", p.subject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
	)
	return nil
}

// PublishFailure publishes a record of a failed sub-request to the DLQ
// subject for offline inspection. This has nothing to acknowledge or
// redeliver from — there is no broker in the request path — it is simply a
// republish of what failed and why.
func (p *Publisher) PublishFailure(ctx context.Context, rec FailureRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("streaming: marshal failure record: %w", err)
	}

	dlqSubject := p.subject + ".dlq"
	ack, err := p.js.Publish(ctx, dlqSubject, data)
	if err != nil {
		return fmt.Errorf("streaming: publish failure: %w", err)
	}

	p.logger.Warn("failure published to dlq",
		"model", rec.Model,
		"error", rec.Error,
		"subject", dlqSubject,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
	)
	return nil
}
