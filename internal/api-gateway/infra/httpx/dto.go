package httpx

import (
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	ledgerapp "github.com/kiryshabutor/OrderCRM/internal/ledger-service/app"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/codec"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
)

type CreateOrderRequest struct {
	Client string `json:"client"`
}

type AddItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

// ProductRequest is used for both creation and update. On update an empty
// name keeps the current one and a missing price or stock keeps the current
// value.
type ProductRequest struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

type OrderResponse struct {
	ID           int                 `json:"id"`
	Client       string              `json:"client"`
	Status       string              `json:"status"`
	Total        string              `json:"total"`
	Items        []OrderItemResponse `json:"items"`
	FrozenPrices map[string]string   `json:"frozen_prices,omitempty"`
	CreatedAt    string              `json:"created_at"`
}

type OrderItemResponse struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type ProductResponse struct {
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

type RemoveProductResponse struct {
	CanceledOrders []int `json:"canceled_orders"`
}

type RevenueResponse struct {
	Revenue string `json:"revenue"`
}

type StatusStatsResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Revenue string `json:"revenue"`
}

type HistoryEntryResponse struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ProductKey string `json:"product,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Total      string `json:"total"`
	TraceID    string `json:"trace_id,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, key := range o.ItemKeys() {
		items = append(items, OrderItemResponse{Name: key, Quantity: o.Items[key]})
	}
	return OrderResponse{
		ID:           o.ID,
		Client:       o.Client,
		Status:       string(o.Status),
		Total:        money.Format(o.Total),
		Items:        items,
		FrozenPrices: mapPrices(o.FrozenPrices),
		CreatedAt:    o.CreatedAt.Local().Format(codec.TimeLayout),
	}
}

func mapOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrderToResponse(o)
	}
	return out
}

func mapProduct(p catalogdomain.Product) ProductResponse {
	return ProductResponse{Name: p.Name, Price: money.Format(p.Price), Stock: p.Stock}
}

func mapPrices(prices map[string]decimal.Decimal) map[string]string {
	if len(prices) == 0 {
		return nil
	}
	out := make(map[string]string, len(prices))
	for k, v := range prices {
		out[k] = money.Format(v)
	}
	return out
}

func mapStats(stats []ledgerapp.StatusStats) []StatusStatsResponse {
	out := make([]StatusStatsResponse, len(stats))
	for i, s := range stats {
		out[i] = StatusStatsResponse{Status: string(s.Status), Count: s.Count, Revenue: money.Format(s.Revenue)}
	}
	return out
}

func mapHistory(entries []journal.Entry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			ID:         e.ID,
			Action:     string(e.Action),
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ProductKey: e.ProductKey,
			Quantity:   e.Quantity,
			Total:      e.Total,
			TraceID:    e.TraceID,
			RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}
