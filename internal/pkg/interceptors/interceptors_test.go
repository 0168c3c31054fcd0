package interceptors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors/constants"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/ordercrm.ledger.v1.Ledger/CreateOrder"}

func TestUnaryServerInterceptor(t *testing.T) {
	testCases := map[string]struct {
		md             metadata.MD
		requestID      string
		idempotencyKey string
	}{
		"both headers": {
			md:             metadata.Pairs(constants.HeaderXRequestID, "req-1", constants.HeaderXIdempotencyKey, "idem-1"),
			requestID:      "req-1",
			idempotencyKey: "idem-1",
		},
		"missing request id is generated": {
			md:             metadata.Pairs(constants.HeaderXIdempotencyKey, "idem-2"),
			idempotencyKey: "idem-2",
		},
		"no metadata": {},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}

			var gotReq, gotIdem string
			_, err := UnaryServerInterceptor()(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
				gotReq = RequestIDFromContext(ctx)
				gotIdem = IdempotencyKeyFromContext(ctx)
				return nil, nil
			})
			require.NoError(t, err)

			if tc.requestID != "" {
				assert.Equal(t, tc.requestID, gotReq)
			} else {
				_, err := uuid.Parse(gotReq)
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.idempotencyKey, gotIdem)
		})
	}
}

func TestGetMetadataValue(t *testing.T) {
	in := metadata.NewIncomingContext(context.Background(), metadata.Pairs("k", "in"))
	assert.Equal(t, "in", GetMetadataValue(in, "k"))

	out := metadata.AppendToOutgoingContext(context.Background(), "k", "out")
	assert.Equal(t, "out", GetMetadataValue(out, "k"))

	assert.Empty(t, GetMetadataValue(context.Background(), "k"))
}

func TestIdempotencyUnaryInterceptor(t *testing.T) {
	c := cache.NewMemoryCache(8, time.Minute, "ledger")
	interceptor := IdempotencyUnaryInterceptor(c, time.Minute)

	calls := 0
	handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
		calls++
		return structpb.NewStruct(map[string]interface{}{"id": float64(calls)})
	}

	ctx := WithIdempotencyKey(context.Background(), "same")
	first, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	second, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, float64(1), second.(*structpb.Struct).Fields["id"].GetNumberValue())
	assert.Equal(t, first.(*structpb.Struct).AsMap(), second.(*structpb.Struct).AsMap())

	_, err = interceptor(WithIdempotencyKey(context.Background(), "other"), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = interceptor(context.Background(), nil, info, handler)
	require.NoError(t, err)
	_, err = interceptor(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, 4, calls, "calls without a key are never replayed")
}

func TestIdempotencyUnaryInterceptorSkipsFailures(t *testing.T) {
	c := cache.NewMemoryCache(8, time.Minute, "ledger")
	interceptor := IdempotencyUnaryInterceptor(c, time.Minute)
	ctx := WithIdempotencyKey(context.Background(), "k")

	calls := 0
	failing := func(context.Context, interface{}) (interface{}, error) {
		calls++
		return nil, errors.New("boom")
	}

	_, err := interceptor(ctx, nil, info, failing)
	assert.Error(t, err)
	_, err = interceptor(ctx, nil, info, failing)
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}
