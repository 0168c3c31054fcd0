package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata stores the chi request id and the idempotency key in
// the context and echoes the request id back to the caller.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(constants.HeaderXIdempotencyKey)

		ctx := interceptors.WithRequestID(r.Context(), requestID)
		ctx = interceptors.WithIdempotencyKey(ctx, idempotencyKey)
		if requestID != "" {
			w.Header().Set(constants.HeaderXRequestID, requestID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
