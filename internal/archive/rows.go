package archive

import (
	"encoding/json"
	"time"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// ResultRow is the flattened structure for Parquet storage. One row is
// written per classify.Result — a fanned-in Response with N inputs produces
// N rows sharing the same ResponseID, matching how the warehouse sink
// flattens one row per event rather than per envelope.
type ResultRow struct {
	ResponseID string `parquet:"response_id,snappy,dict"`
	Model      string `parquet:"model,snappy,dict"`
	CreatedMS  int64  `parquet:"created_ms"`

	Index      int32  `parquet:"index"`
	Label      string `parquet:"label,snappy,dict"`
	NumClasses int32  `parquet:"num_classes"`
	ProbsJSON  string `parquet:"probs_json,snappy"`

	PromptTokens     uint32 `parquet:"prompt_tokens"`
	CompletionTokens uint32 `parquet:"completion_tokens"`
	TotalTokens      uint32 `parquet:"total_tokens"`

	// Partition columns (Hive-style).
	Year  int32 `parquet:"year,dict"`
	Month int32 `parquet:"month,dict"`
	Day   int32 `parquet:"day,dict"`
	Hour  int32 `parquet:"hour,dict"`
}

// RowsFromResponse flattens a classify.Response into one ResultRow per
// classify.Result it carries.
func RowsFromResponse(resp *classify.Response) []ResultRow {
	created := time.Unix(resp.Created, 0).UTC()
	rows := make([]ResultRow, 0, len(resp.Data))
	for _, result := range resp.Data {
		probsJSON, err := json.Marshal(result.Probs)
		if err != nil {
			probsJSON = []byte("[]")
		}
		rows = append(rows, ResultRow{
			ResponseID:       resp.ID,
			Model:            resp.Model,
			CreatedMS:        resp.Created * 1000,
			Index:            int32(result.Index),
			Label:            result.Label,
			NumClasses:       int32(result.NumClasses),
			ProbsJSON:        string(probsJSON),
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			Year:             int32(created.Year()),
			Month:            int32(created.Month()),
			Day:              int32(created.Day()),
			Hour:             int32(created.Hour()),
		})
	}
	return rows
}
