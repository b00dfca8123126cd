package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doublewordai/classify-gateway/internal/classify"
	"github.com/doublewordai/classify-gateway/internal/fanout"
)

// Classifier is the fanout edge capability the HTTP handler depends on. It
// abstracts *fanout.Edge so handler tests can run without a real scheduler.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) (*classify.Response, error)
}

// HealthChecker reports whether an optional component is reachable. A nil
// HealthChecker entry is skipped by handleHealthz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrMalformedRequest)
		return
	}
	if req.Model == "" || len(req.Input) == 0 {
		s.writeError(w, http.StatusBadRequest, ErrMalformedRequest)
		return
	}

	resp, err := s.classifier.Classify(r.Context(), req)
	if err != nil {
		if errors.Is(err, fanout.ErrEmptyInput) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.logger.Error("classify failed", "request_id", GetRequestID(r.Context()), "error", err)
		s.writeError(w, http.StatusInternalServerError, fanout.ErrInternalFailure)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode classify response", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	for name, checker := range s.healthCheckers {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
}
