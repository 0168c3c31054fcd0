// Package interceptors carries the request id and the idempotency key of a
// call from gRPC metadata into the context.
package interceptors

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors/constants"
)

// UnaryServerInterceptor copies x-request-id and x-idempotency-key from the
// incoming metadata into the context. A missing request id is generated.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := GetMetadataValue(ctx, constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		idempotencyKey := GetMetadataValue(ctx, constants.HeaderXIdempotencyKey)

		ctx = WithRequestID(ctx, requestID)
		ctx = WithIdempotencyKey(ctx, idempotencyKey)
		_ = grpc.SetHeader(ctx, metadata.Pairs(constants.HeaderXRequestID, requestID))

		slog.DebugContext(ctx, "grpc call", "method", info.FullMethod, "request_id", requestID, "idempotency_key", idempotencyKey)
		return handler(ctx, req)
	}
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyIdempotencyKey, key)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(constants.ContextKeyRequestID).(string)
	return id
}

func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(constants.ContextKeyIdempotencyKey).(string)
	return key
}

// GetMetadataValue returns the first value of key in the incoming metadata,
// falling back to the outgoing metadata.
func GetMetadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
