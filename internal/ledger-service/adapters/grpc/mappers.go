package grpc

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/codec"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
)

// OrderToStruct renders an order as {id, client, status, total, items, created_at}.
// Money is carried as a fixed two-decimal string.
func OrderToStruct(o domain.Order) (*structpb.Struct, error) {
	items := make(map[string]interface{}, len(o.Items))
	for k, q := range o.Items {
		items[k] = q
	}
	return structpb.NewStruct(map[string]interface{}{
		"id":         o.ID,
		"client":     o.Client,
		"status":     string(o.Status),
		"total":      money.Format(o.Total),
		"items":      items,
		"created_at": o.CreatedAt.Local().Format(codec.TimeLayout),
	})
}

// OrderFromStruct is the inverse of OrderToStruct. Frozen prices are not
// carried over the wire.
func OrderFromStruct(s *structpb.Struct) (domain.Order, error) {
	if s == nil {
		return domain.Order{}, fmt.Errorf("empty order in response")
	}
	total, err := decimal.NewFromString(stringField(s, "total"))
	if err != nil {
		return domain.Order{}, fmt.Errorf("invalid total: %w", err)
	}
	createdAt, err := time.ParseInLocation(codec.TimeLayout, stringField(s, "created_at"), time.Local)
	if err != nil {
		return domain.Order{}, fmt.Errorf("invalid created_at: %w", err)
	}

	o := domain.NewOrder(intField(s, "id"), stringField(s, "client"), createdAt)
	o.Status = domain.Status(stringField(s, "status"))
	o.Total = total
	for k, v := range s.GetFields()["items"].GetStructValue().GetFields() {
		o.Items[k] = int(v.GetNumberValue())
	}
	return o, nil
}

func RevenueToStruct(revenue decimal.Decimal) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"revenue": money.Format(revenue)})
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

// intField returns 0 for missing, fractional or out of range numbers so the
// ledger validation rejects them.
func intField(s *structpb.Struct, name string) int {
	f := s.GetFields()[name].GetNumberValue()
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}
