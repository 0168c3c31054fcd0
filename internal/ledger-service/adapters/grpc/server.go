// Package grpc exposes the order ledger as the ordercrm.ledger.v1.Ledger
// gRPC service. Messages are google.protobuf.Struct values so the service
// needs no generated code.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors"
)

const ServiceName = "ordercrm.ledger.v1.Ledger"

const (
	MethodCreateOrder = "/" + ServiceName + "/CreateOrder"
	MethodGetOrder    = "/" + ServiceName + "/GetOrder"
	MethodAddItem     = "/" + ServiceName + "/AddItem"
	MethodRemoveItem  = "/" + ServiceName + "/RemoveItem"
	MethodSetStatus   = "/" + ServiceName + "/SetStatus"
	MethodRevenue     = "/" + ServiceName + "/Revenue"
)

// Ledger is the application service behind the gRPC surface.
type Ledger interface {
	Create(ctx context.Context, client string) (domain.Order, error)
	FindByID(id int) (domain.Order, error)
	AddItem(ctx context.Context, id int, name string, qty int) (domain.Order, error)
	RemoveItem(ctx context.Context, id int, name string) (domain.Order, error)
	SetStatus(ctx context.Context, id int, status string) (domain.Order, error)
	Revenue() decimal.Decimal
}

// LedgerServer is the handler type of the service descriptor.
type LedgerServer interface {
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Revenue(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ledgerServer struct {
	ledger Ledger
}

func NewLedgerServer(ledger Ledger) LedgerServer {
	return &ledgerServer{ledger: ledger}
}

// RegisterLedgerServer registers srv on s.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&serviceDesc, srv)
}

func (s *ledgerServer) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	client := stringField(req, "client")
	slog.InfoContext(ctx, "creating order", "request_id", interceptors.RequestIDFromContext(ctx), "client", client)

	o, err := s.ledger.Create(ctx, client)
	return orderReply(o, err)
}

func (s *ledgerServer) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := s.ledger.FindByID(intField(req, "id"))
	return orderReply(o, err)
}

func (s *ledgerServer) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := s.ledger.AddItem(ctx, intField(req, "id"), stringField(req, "name"), intField(req, "quantity"))
	return orderReply(o, err)
}

func (s *ledgerServer) RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := s.ledger.RemoveItem(ctx, intField(req, "id"), stringField(req, "name"))
	return orderReply(o, err)
}

func (s *ledgerServer) SetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := s.ledger.SetStatus(ctx, intField(req, "id"), stringField(req, "status"))
	return orderReply(o, err)
}

func (s *ledgerServer) Revenue(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return RevenueToStruct(s.ledger.Revenue())
}

func orderReply(o domain.Order, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, apperr.ToGRPC(err)
	}
	return OrderToStruct(o)
}

type structHandler func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name, fullMethod string, call structHandler) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateOrder", MethodCreateOrder, LedgerServer.CreateOrder),
		unary("GetOrder", MethodGetOrder, LedgerServer.GetOrder),
		unary("AddItem", MethodAddItem, LedgerServer.AddItem),
		unary("RemoveItem", MethodRemoveItem, LedgerServer.RemoveItem),
		unary("SetStatus", MethodSetStatus, LedgerServer.SetStatus),
		unary("Revenue", MethodRevenue, LedgerServer.Revenue),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordercrm/ledger/v1/ledger.proto",
}

// NewServer builds a gRPC server with tracing, request-id propagation and,
// when c is not nil, idempotent replay. The ledger and health services are
// registered on it.
func NewServer(ledger Ledger, c cache.Cache, idempotencyTTL time.Duration) (*grpc.Server, *health.Server) {
	chain := []grpc.UnaryServerInterceptor{interceptors.UnaryServerInterceptor()}
	if c != nil {
		chain = append(chain, interceptors.IdempotencyUnaryInterceptor(c, idempotencyTTL))
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)
	RegisterLedgerServer(srv, NewLedgerServer(ledger))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
