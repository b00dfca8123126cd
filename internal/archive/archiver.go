package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// dedup guard sizing: a response id is a UUID, so collisions are
// effectively impossible at any realistic throughput; these defaults match
// the teacher's own bloom filter defaults in internal/dedup.
const dedupCapacity = 1_000_000
const dedupFPRate = 0.0001

// Archiver buffers completed classification responses in memory and
// flushes them to S3 as Parquet files when the buffer reaches
// cfg.Batch.MaxResults or cfg.Batch.FlushInterval elapses, whichever comes
// first. It is a pure side-channel: Record never blocks or fails the
// caller, and nothing it buffers is ever read back into the scheduler.
type Archiver struct {
	cfg    Config
	writer *ParquetWriter
	s3     *S3Client
	dedup  *dedupGuard
	logger *slog.Logger

	mu     sync.Mutex
	buffer []ResultRow

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs an Archiver. It does not contact S3: bucket provisioning
// is deferred to the first Upload or HealthCheck, so an S3 endpoint that
// isn't reachable yet at process startup never fails gateway boot.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Archiver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "archive")

	s3Client, err := NewS3Client(ctx, cfg.S3, logger)
	if err != nil {
		return nil, fmt.Errorf("archive: new s3 client: %w", err)
	}

	return &Archiver{
		cfg:    cfg,
		writer: NewParquetWriter(cfg.Parquet),
		s3:     s3Client,
		dedup:  newDedupGuard(dedupCapacity, dedupFPRate),
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Record appends resp's rows to the buffer, flushing immediately if this
// push reaches the configured batch size. Duplicate response ids (observed
// when an upstream retries after a timed-out upload) are silently dropped.
func (a *Archiver) Record(resp *classify.Response) {
	if a.dedup.seen(resp.ID) {
		a.logger.Debug("skipping already-archived response", "response_id", resp.ID)
		return
	}

	rows := RowsFromResponse(resp)
	a.mu.Lock()
	a.buffer = append(a.buffer, rows...)
	full := len(a.buffer) >= a.cfg.Batch.MaxResults
	a.mu.Unlock()

	if full {
		go func() {
			if err := a.Flush(context.Background()); err != nil {
				a.logger.Error("size-triggered flush failed", "error", err)
			}
		}()
	}
}

// Flush writes the current buffer to a Parquet file and uploads it to S3.
// A flush of an empty buffer is a no-op.
func (a *Archiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}
	rows := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	data, err := a.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("archive: encode batch: %w", err)
	}

	model := rows[0].Model
	now := time.Now().UTC()
	key := a.s3.GenerateKey(model, now.Year(), int(now.Month()), now.Day(), now.Hour())
	if err := a.s3.Upload(ctx, key, data); err != nil {
		return fmt.Errorf("archive: upload batch: %w", err)
	}

	a.logger.Info("archived result batch", "rows", len(rows), "key", key)
	return nil
}

// Start begins the periodic flush loop and dedup window rotation in
// background goroutines.
func (a *Archiver) Start(ctx context.Context) {
	a.dedup.startRotation(a.stopCh, a.cfg.Batch.DedupWindow)
	a.wg.Add(1)
	go a.run(ctx)
}

func (a *Archiver) run(ctx context.Context) {
	defer a.wg.Done()

	interval := a.cfg.Batch.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flushBestEffort()
			return
		case <-a.stopCh:
			a.flushBestEffort()
			return
		case <-ticker.C:
			if err := a.Flush(context.Background()); err != nil {
				a.logger.Error("scheduled flush failed", "error", err)
			}
		}
	}
}

func (a *Archiver) flushBestEffort() {
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Flush(flushCtx); err != nil {
		a.logger.Error("final flush on shutdown failed", "error", err)
	}
}

// Stop signals the flush loop to exit, flushing any buffered rows first,
// and waits for it to finish.
func (a *Archiver) Stop() {
	close(a.stopCh)
	a.wg.Wait()
}

// HealthCheck verifies the archive's S3 target is reachable.
func (a *Archiver) HealthCheck(ctx context.Context) error {
	return a.s3.HealthCheck(ctx)
}
