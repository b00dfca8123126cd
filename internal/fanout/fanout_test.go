package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/doublewordai/classify-gateway/internal/classify"
)

// recordingSubmitter implements Submitter with a per-input canned response
// or error, keyed by the single input string it receives.
type recordingSubmitter struct {
	mu   sync.Mutex
	seen []string

	byInput map[string]error // input -> error to return instead of a response
}

func (s *recordingSubmitter) Submit(ctx context.Context, req classify.Request) (*classify.Response, error) {
	if len(req.Input) != 1 {
		return nil, errors.New("expected exactly one input per sub-request")
	}
	input := req.Input[0]

	s.mu.Lock()
	s.seen = append(s.seen, input)
	s.mu.Unlock()

	if err, ok := s.byInput[input]; ok && err != nil {
		return nil, err
	}

	return &classify.Response{
		Model: req.Model,
		Data: []classify.Result{{
			Index:      0,
			Label:      "label-for-" + input,
			Probs:      []float64{1},
			NumClasses: 1,
		}},
		Usage: classify.Usage{PromptTokens: uint32(len(input)), CompletionTokens: 1, TotalTokens: uint32(len(input)) + 1},
	}, nil
}

func TestEdge_MergesResultsPreservingOrder(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{}}
	edge := New(sub, nil, nil)

	resp, err := edge.Classify(context.Background(), classify.Request{
		Model: "m",
		Input: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Data))
	}
	for i, want := range []string{"a", "b", "c"} {
		if resp.Data[i].Index != i {
			t.Errorf("result %d: index = %d, want %d", i, resp.Data[i].Index, i)
		}
		if resp.Data[i].Label != "label-for-"+want {
			t.Errorf("result %d: label = %q, want label-for-%s", i, resp.Data[i].Label, want)
		}
	}
}

func TestEdge_AggregatesUsage(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{}}
	edge := New(sub, nil, nil)

	resp, err := edge.Classify(context.Background(), classify.Request{
		Model: "m",
		Input: []string{"aa", "bbbb"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	wantPrompt := uint32(2 + 4)
	wantCompletion := uint32(1 + 1)
	if resp.Usage.PromptTokens != wantPrompt {
		t.Errorf("prompt tokens = %d, want %d", resp.Usage.PromptTokens, wantPrompt)
	}
	if resp.Usage.CompletionTokens != wantCompletion {
		t.Errorf("completion tokens = %d, want %d", resp.Usage.CompletionTokens, wantCompletion)
	}
	if resp.Usage.TotalTokens != wantPrompt+wantCompletion {
		t.Errorf("total tokens = %d, want %d", resp.Usage.TotalTokens, wantPrompt+wantCompletion)
	}
}

func TestEdge_OneSubRequestFailureFailsTheWholeRequest(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{
		"b": errors.New("backend rejected b"),
	}}
	edge := New(sub, nil, nil)

	resp, err := edge.Classify(context.Background(), classify.Request{
		Model: "m",
		Input: []string{"a", "b", "c"},
	})
	if !errors.Is(err, ErrInternalFailure) {
		t.Fatalf("expected ErrInternalFailure, got %v", err)
	}
	if resp != nil {
		t.Fatalf("expected no partial response, got %+v", resp)
	}
}

func TestEdge_EmptyInputRejected(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{}}
	edge := New(sub, nil, nil)

	_, err := edge.Classify(context.Background(), classify.Request{Model: "m"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestEdge_SubmitsOneSubRequestPerInput(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{}}
	edge := New(sub, nil, nil)

	inputs := []string{"a", "b", "c", "d", "e"}
	_, err := edge.Classify(context.Background(), classify.Request{Model: "m", Input: inputs})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if len(sub.seen) != len(inputs) {
		t.Fatalf("expected %d sub-submissions, got %d", len(inputs), len(sub.seen))
	}
}

// recordingObserver implements Observer, recording whichever hook fires.
type recordingObserver struct {
	mu        sync.Mutex
	successes []*classify.Response
	failures  []string
	done      chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{done: make(chan struct{}, 10)}
}

func (o *recordingObserver) ObserveSuccess(resp *classify.Response) {
	o.mu.Lock()
	o.successes = append(o.successes, resp)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *recordingObserver) ObserveFailure(model, input string, cause error) {
	o.mu.Lock()
	o.failures = append(o.failures, input)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func TestEdge_ObserverSeesSuccessWithoutDelayingResponse(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{}}
	obs := newRecordingObserver()
	edge := New(sub, obs, nil)

	resp, err := edge.Classify(context.Background(), classify.Request{Model: "m", Input: []string{"a"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response")
	}

	<-obs.done
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.successes) != 1 {
		t.Fatalf("expected 1 observed success, got %d", len(obs.successes))
	}
}

func TestEdge_ObserverSeesFailure(t *testing.T) {
	sub := &recordingSubmitter{byInput: map[string]error{"b": errors.New("backend rejected b")}}
	obs := newRecordingObserver()
	edge := New(sub, obs, nil)

	_, err := edge.Classify(context.Background(), classify.Request{Model: "m", Input: []string{"a", "b"}})
	if !errors.Is(err, ErrInternalFailure) {
		t.Fatalf("expected ErrInternalFailure, got %v", err)
	}

	<-obs.done
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.failures) != 1 || obs.failures[0] != "b" {
		t.Fatalf("expected failure observed for input %q, got %v", "b", obs.failures)
	}
}
