package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/doublewordai/classify-gateway/internal/httpapi"
)

// Middleware returns HTTP middleware that validates the "Authorization:
// Bearer <key>" header against service, rejecting unauthenticated or
// revoked callers with 401 before the request reaches the fanout edge. On
// success it stashes the key's id as the caller identity used by
// httpapi.PerKeyRateLimit.
func Middleware(service *Service, logger *slog.Logger) httpapi.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth-middleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plaintext, ok := bearerToken(r)
			if !ok || !ValidateKeyFormat(plaintext) {
				writeUnauthorized(w, "missing or malformed API key")
				return
			}

			key, err := service.ValidateKey(r.Context(), HashKey(plaintext))
			if err != nil {
				logger.Error("key validation failed", "error", err)
				writeUnauthorized(w, "invalid API key")
				return
			}
			if key == nil {
				writeUnauthorized(w, "invalid API key")
				return
			}

			ctx := httpapi.WithCallerID(r.Context(), key.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
