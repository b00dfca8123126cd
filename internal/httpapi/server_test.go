package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doublewordai/classify-gateway/internal/classify"
	"github.com/doublewordai/classify-gateway/internal/fanout"
)

type stubClassifier struct {
	resp *classify.Response
	err  error
}

func (c *stubClassifier) Classify(ctx context.Context, req classify.Request) (*classify.Response, error) {
	return c.resp, c.err
}

func newTestServer(classifier Classifier) *Server {
	cfg := Config{
		MaxBodyBytes: 1 << 20,
		RateLimit:    RateLimitConfig{Enabled: false},
	}
	return New(cfg, classifier, nil, Opts{})
}

func TestHandleClassify_Success(t *testing.T) {
	stub := &stubClassifier{resp: &classify.Response{
		ID:     "resp-1",
		Object: classify.ObjectList,
		Model:  "m",
		Data:   []classify.Result{{Index: 0, Label: "positive"}},
	}}
	srv := newTestServer(stub)

	body, _ := json.Marshal(classify.Request{Model: "m", Input: []string{"hello"}})
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got classify.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "resp-1" {
		t.Errorf("id = %q, want resp-1", got.ID)
	}
}

func TestHandleClassify_MalformedBody(t *testing.T) {
	srv := newTestServer(&stubClassifier{})

	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleClassify_MissingInput(t *testing.T) {
	srv := newTestServer(&stubClassifier{})

	body, _ := json.Marshal(classify.Request{Model: "m"})
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleClassify_InternalFailureReturns500WithNoPartialBody(t *testing.T) {
	srv := newTestServer(&stubClassifier{err: fanout.ErrInternalFailure})

	body, _ := json.Marshal(classify.Request{Model: "m", Input: []string{"a", "b", "c"}})
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body2 errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body2); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body2.Error == "" {
		t.Error("expected a non-empty error message, no partial classification data")
	}
}

func TestHandleHealthz_OK(t *testing.T) {
	srv := newTestServer(&stubClassifier{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

type failingChecker struct{ err error }

func (f failingChecker) HealthCheck(ctx context.Context) error { return f.err }

func TestHandleHealthz_UnhealthyComponent(t *testing.T) {
	cfg := Config{MaxBodyBytes: 1 << 20, RateLimit: RateLimitConfig{Enabled: false}}
	srv := New(cfg, &stubClassifier{}, nil, Opts{
		HealthCheckers: map[string]HealthChecker{
			"backend": failingChecker{err: errors.New("down")},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestBodySizeLimit_OverLimitRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := BodySizeLimit(100)(handler)

	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewReader(bytes.Repeat([]byte("a"), 200)))
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected a request id in context")
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := RequestID(handler)

	req := httptest.NewRequest(http.MethodGet, "/classify", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestPerKeyRateLimit_BlocksOverLimit(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, PerKeyRPS: 1, PerKeyBurst: 1}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := PerKeyRateLimit(cfg)(handler)

	req := httptest.NewRequest(http.MethodPost, "/classify", nil)
	req = req.WithContext(WithCallerID(req.Context(), "caller-1"))

	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rec1.Code, http.StatusOK)
	}

	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rec2.Code, http.StatusTooManyRequests)
	}
}

func TestPerKeyRateLimit_NoCallerIDPassesThrough(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, PerKeyRPS: 1, PerKeyBurst: 1}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := PerKeyRateLimit(cfg)(handler)

	req := httptest.NewRequest(http.MethodPost, "/classify", nil)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}
}
