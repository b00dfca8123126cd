package backend

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// HeuristicBackend is a deterministic, dependency-free stand-in for the
// neural-network forward pass spec.md treats as an opaque external
// collaborator. It scores each input by keyword lookup rather than running
// a model, so the scheduler and HTTP surface can be exercised end to end
// without a GPU or model weights.
type HeuristicBackend struct {
	labels  []string
	maxLen  int
	latency time.Duration
}

var positiveMarkers = []string{"good", "great", "excellent", "love", "happy", "amazing"}
var negativeMarkers = []string{"bad", "terrible", "hate", "awful", "sad", "broken"}

// New constructs a HeuristicBackend from Config.
func New(cfg Config) (*HeuristicBackend, error) {
	labels, err := cfg.ParseID2Label()
	if err != nil {
		return nil, err
	}

	return &HeuristicBackend{
		labels:  labels,
		maxLen:  cfg.MaxSequenceLength,
		latency: time.Duration(cfg.SimulatedLatencyMS) * time.Millisecond,
	}, nil
}

// ClassifyBatch scores each request's single input string and returns a
// positional result slice, as required by the Backend contract.
// Per-request scoring cannot fail; the only batch-level error is ctx's
// error when ctx ends during the simulated latency.
func (b *HeuristicBackend) ClassifyBatch(ctx context.Context, requests []classify.Request) ([]Result, error) {
	if b.latency > 0 {
		select {
		case <-time.After(b.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	results := make([]Result, len(requests))
	for i, req := range requests {
		results[i] = Result{Response: b.classifyOne(req)}
	}
	return results, nil
}

func (b *HeuristicBackend) classifyOne(req classify.Request) *classify.Response {
	data := make([]classify.Result, len(req.Input))
	var promptTokens uint32

	for i, text := range req.Input {
		truncated := text
		if b.maxLen > 0 && len(truncated) > b.maxLen {
			truncated = truncated[:b.maxLen]
		}

		probs := b.score(truncated)
		label, idx := argmax(probs, b.labels)

		data[i] = classify.Result{
			Index:      i,
			Label:      label,
			Probs:      probs,
			NumClasses: len(b.labels),
		}
		_ = idx
		promptTokens += estimateTokens(truncated)
	}

	return &classify.Response{
		Model: req.Model,
		Data:  data,
		Usage: classify.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: uint32(len(req.Input)),
			TotalTokens:      promptTokens + uint32(len(req.Input)),
		},
	}
}

// estimateTokens follows original_source's rough token heuristic
// (ceil(byte_length/4)) rather than running a real tokenizer.
func estimateTokens(s string) uint32 {
	return uint32(math.Ceil(float64(len(s)) / 4.0))
}

// score computes an unnormalized keyword hit count per label, then
// softmaxes it into a probability distribution over len(labels) classes.
func (b *HeuristicBackend) score(text string) []float64 {
	lower := strings.ToLower(text)
	logits := make([]float64, len(b.labels))

	pos := countMarkers(lower, positiveMarkers)
	neg := countMarkers(lower, negativeMarkers)

	for i, label := range b.labels {
		switch {
		case strings.Contains(label, "pos"):
			logits[i] = float64(pos) - float64(neg)
		case strings.Contains(label, "neg"):
			logits[i] = float64(neg) - float64(pos)
		default:
			logits[i] = 0.5
		}
	}

	return softmax(logits)
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, m := range markers {
		n += strings.Count(text, m)
	}
	return n
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	sum := 0.0
	exps := make([]float64, len(logits))
	for i, l := range logits {
		exps[i] = math.Exp(l - maxLogit)
		sum += exps[i]
	}

	probs := make([]float64, len(logits))
	for i, e := range exps {
		probs[i] = e / sum
	}
	return probs
}

func argmax(probs []float64, labels []string) (string, int) {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return labels[best], best
}
