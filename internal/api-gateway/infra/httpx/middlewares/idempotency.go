package middlewares

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors"
)

// HeaderIdempotentReplay marks a response served from the cache.
const HeaderIdempotentReplay = "Idempotent-Replayed"

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a mutating request whose
// idempotency key was already seen for the same method and path. Server
// errors are not stored so the caller can retry.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := interceptors.IdempotencyKeyFromContext(r.Context())
			if key == "" || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			cacheKey := c.GenerateKey(r.Method+" "+r.URL.Path, key)

			if raw, err := c.Get(ctx, cacheKey); err != nil {
				slog.WarnContext(ctx, "idempotency lookup failed", "error", err)
			} else if raw != "" {
				var stored storedResponse
				if err := json.Unmarshal([]byte(raw), &stored); err == nil {
					slog.InfoContext(ctx, "replaying idempotent response", "path", r.URL.Path, "idempotency_key", key)
					w.Header().Set("Content-Type", stored.ContentType)
					w.Header().Set(HeaderIdempotentReplay, "true")
					w.WriteHeader(stored.Status)
					_, _ = w.Write(stored.Body)
					return
				}
			}

			rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				return
			}

			raw, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := c.Set(ctx, cacheKey, raw, ttl); err != nil {
				slog.WarnContext(ctx, "idempotency store failed", "error", err)
			}
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
