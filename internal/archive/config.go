// Package archive buffers completed classification responses and flushes
// them to S3 as Parquet files on a size or time trigger. It is a pure
// side-channel: failures here never affect the HTTP response already
// returned to the caller, and nothing archived is ever read back into the
// scheduler's admission path.
package archive

import "time"

// Config configures the archive module.
type Config struct {
	// Enabled toggles archival of completed responses. Disabled by default
	// so the scheduler/fanout contract is testable without an S3 target.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	S3      S3Config      `envPrefix:"S3_"`
	Batch   BatchConfig   `envPrefix:"BATCH_"`
	Parquet ParquetConfig `envPrefix:"PARQUET_"`
}

// S3Config holds S3/MinIO configuration for the archived result bucket.
type S3Config struct {
	Endpoint        string `env:"ENDPOINT" envDefault:"http://localhost:9000"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Bucket          string `env:"BUCKET" envDefault:"classify-results"`
	AccessKeyID     string `env:"ACCESS_KEY_ID" envDefault:"minioadmin"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" envDefault:"minioadmin"`
	UsePathStyle    bool   `env:"USE_PATH_STYLE" envDefault:"true"`
	Prefix          string `env:"PREFIX" envDefault:"results"`

	// KeyTemplate builds the object key for each uploaded batch. Recognized
	// placeholders: {prefix}, {model}, {year}, {month}, {day}, {hour}, {id}.
	// Operators partitioning a bucket across multiple gateways by something
	// other than model (e.g. a tenant label folded into Prefix) can drop the
	// {model} segment, or drop the {hour} segment for low-volume deployments
	// that would rather not spread one day's results across 24 prefixes.
	KeyTemplate string `env:"KEY_TEMPLATE" envDefault:"{prefix}/model={model}/year={year}/month={month}/day={day}/hour={hour}/results_{id}.parquet"`
}

// BatchConfig holds the buffering trigger configuration.
type BatchConfig struct {
	// MaxResults is the maximum number of buffered results before a flush
	// is forced regardless of FlushInterval.
	MaxResults int `env:"MAX_RESULTS" envDefault:"5000"`

	// FlushInterval is the maximum time to let results sit in the buffer
	// before flushing a partial batch.
	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"1m"`

	// DedupWindow is the bloom filter sliding window used to guard against
	// re-archiving the same response id twice across retried uploads.
	DedupWindow time.Duration `env:"DEDUP_WINDOW" envDefault:"10m"`
}

// ParquetConfig holds Parquet writer configuration.
type ParquetConfig struct {
	Compression string `env:"COMPRESSION" envDefault:"snappy"`
}
