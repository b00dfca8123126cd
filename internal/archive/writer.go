package archive

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// ParquetWriter writes ResultRow batches to Parquet format.
type ParquetWriter struct {
	config ParquetConfig
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(cfg ParquetConfig) *ParquetWriter {
	return &ParquetWriter{config: cfg}
}

// Write writes a batch of result rows to Parquet format and returns the
// encoded bytes.
func (w *ParquetWriter) Write(rows []ResultRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoRowsToWrite
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[ResultRow](&buf,
		parquet.Compression(w.codec()),
		parquet.CreatedBy("classify-gateway-archive", "1.0.0", ""),
	)

	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("archive: write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("archive: close writer: %w", err)
	}

	return buf.Bytes(), nil
}

func (w *ParquetWriter) codec() compress.Codec {
	switch w.config.Compression {
	case "gzip":
		return &parquet.Gzip
	case "zstd":
		return &parquet.Zstd
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Snappy
	}
}
