package grpc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
)

// Client calls a remote ledger over a gRPC connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) CreateOrder(ctx context.Context, client string) (domain.Order, error) {
	return c.order(ctx, MethodCreateOrder, map[string]interface{}{"client": client})
}

func (c *Client) GetOrder(ctx context.Context, id int) (domain.Order, error) {
	return c.order(ctx, MethodGetOrder, map[string]interface{}{"id": id})
}

func (c *Client) AddItem(ctx context.Context, id int, name string, qty int) (domain.Order, error) {
	return c.order(ctx, MethodAddItem, map[string]interface{}{"id": id, "name": name, "quantity": qty})
}

func (c *Client) RemoveItem(ctx context.Context, id int, name string) (domain.Order, error) {
	return c.order(ctx, MethodRemoveItem, map[string]interface{}{"id": id, "name": name})
}

func (c *Client) SetStatus(ctx context.Context, id int, status string) (domain.Order, error) {
	return c.order(ctx, MethodSetStatus, map[string]interface{}{"id": id, "status": status})
}

func (c *Client) Revenue(ctx context.Context) (decimal.Decimal, error) {
	out, err := c.invoke(ctx, MethodRevenue, nil)
	if err != nil {
		return decimal.Zero, err
	}
	revenue, err := decimal.NewFromString(stringField(out, "revenue"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("grpc Revenue: invalid revenue: %w", err)
	}
	return revenue, nil
}

func (c *Client) order(ctx context.Context, method string, fields map[string]interface{}) (domain.Order, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return domain.Order{}, err
	}
	o, err := OrderFromStruct(out)
	if err != nil {
		return domain.Order{}, fmt.Errorf("grpc %s: %w", method, err)
	}
	return o, nil
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("grpc %s: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, fmt.Errorf("grpc %s: %w", method, err)
	}
	return out, nil
}
