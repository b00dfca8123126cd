package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// Config configures the heuristic backend. It mirrors the shape of
// original_source's config.rs DebertaConfig (model identity plus a label
// map), translated to the one backend this repository ships without an
// actual accelerator runtime behind it.
type Config struct {
	// ModelID is the identifier returned verbatim in responses; it is not
	// resolved against any model registry.
	ModelID string `env:"MODEL_ID" envDefault:"lexical-sentiment-v1"`

	// MaxSequenceLength bounds how much of an input string the heuristic
	// inspects, matching the truncation knob a real tokenizer would expose.
	MaxSequenceLength int `env:"MAX_SEQUENCE_LENGTH" envDefault:"512"`

	// ID2Label maps class index to label name, in "0=negative,1=neutral,2=positive"
	// form, matching original_source's --id2label flag format.
	ID2Label string `env:"ID2LABEL" envDefault:"0=negative,1=neutral,2=positive"`

	// SimulatedLatencyMS adds a fixed per-call delay, standing in for the
	// forward-pass latency a real accelerator would incur. Zero disables it.
	SimulatedLatencyMS int `env:"SIMULATED_LATENCY_MS" envDefault:"0"`
}

// ParseID2Label parses the ID2Label string into an ordered label slice
// (index i holds the label for class i). Malformed pairs are skipped.
func (c Config) ParseID2Label() ([]string, error) {
	pairs := strings.Split(c.ID2Label, ",")
	labels := make(map[int]string, len(pairs))
	maxID := -1

	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		labels[id] = strings.TrimSpace(parts[1])
		if id > maxID {
			maxID = id
		}
	}

	if maxID < 0 {
		return nil, fmt.Errorf("id2label %q: no valid entries", c.ID2Label)
	}

	ordered := make([]string, maxID+1)
	for id, label := range labels {
		ordered[id] = label
	}
	for i, label := range ordered {
		if label == "" {
			return nil, fmt.Errorf("id2label %q: missing entry for class %d", c.ID2Label, i)
		}
	}

	return ordered, nil
}
