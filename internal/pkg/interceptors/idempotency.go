package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
)

// IdempotencyUnaryInterceptor replays the stored response of a call that
// carries an idempotency key already seen for the same method. Only
// successful *structpb.Struct responses are stored. It must run after
// UnaryServerInterceptor.
func IdempotencyUnaryInterceptor(c cache.Cache, ttl time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		key := IdempotencyKeyFromContext(ctx)
		if key == "" {
			return handler(ctx, req)
		}
		cacheKey := c.GenerateKey(info.FullMethod, key)

		if cached, err := c.Get(ctx, cacheKey); err != nil {
			slog.WarnContext(ctx, "idempotency lookup failed", "method", info.FullMethod, "error", err)
		} else if cached != "" {
			resp := &structpb.Struct{}
			if err := protojson.Unmarshal([]byte(cached), resp); err == nil {
				slog.InfoContext(ctx, "replaying idempotent response", "method", info.FullMethod, "idempotency_key", key)
				return resp, nil
			}
		}

		resp, err := handler(ctx, req)
		if err != nil {
			return resp, err
		}
		if msg, ok := resp.(*structpb.Struct); ok {
			if raw, mErr := protojson.Marshal(msg); mErr == nil {
				if sErr := c.Set(ctx, cacheKey, string(raw), ttl); sErr != nil {
					slog.WarnContext(ctx, "idempotency store failed", "method", info.FullMethod, "error", sErr)
				}
			}
		}
		return resp, nil
	}
}
