package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kiryshabutor/OrderCRM/internal/api-gateway/core/ports"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/interceptors"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
)

// Handler serves the ledger and the catalog over HTTP.
type Handler struct {
	ledger    ports.Ledger
	catalog   ports.Catalog
	workflows ports.ProductWorkflows
}

func NewHandler(ledger ports.Ledger, catalog ports.Catalog, workflows ports.ProductWorkflows) *Handler {
	return &Handler{ledger: ledger, catalog: catalog, workflows: workflows}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}

	slog.InfoContext(r.Context(), "creating order",
		"request_id", interceptors.RequestIDFromContext(r.Context()), "client", req.Client)

	o, err := h.ledger.Create(r.Context(), req.Client)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(o))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapOrders(h.ledger.All()))
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	o, err := h.ledger.FindByID(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.ledger.AddItem(r.Context(), id, req.Name, req.Quantity)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	o, err := h.ledger.RemoveItem(r.Context(), id, name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.ledger.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	entries, err := h.ledger.History(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapHistory(entries))
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RevenueResponse{Revenue: money.Format(h.ledger.Revenue())})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapStats(h.ledger.Stats()))
}

func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	prices := mapPrices(h.ledger.Prices())
	if prices == nil {
		prices = map[string]string{}
	}
	writeJSON(w, http.StatusOK, prices)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.All()
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = mapProduct(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Price == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "price is required")
		return
	}
	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}
	if err := h.workflows.AddProduct(r.Context(), req.Name, *req.Price, stock); err != nil {
		writeAppError(w, err)
		return
	}
	p, _ := h.catalog.Find(req.Name)
	writeJSON(w, http.StatusCreated, mapProduct(p))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !decode(w, r, &req) {
		return
	}

	current, ok := h.catalog.Find(name)
	if !ok {
		writeAppError(w, apperr.NotFoundf("product %q not found", name))
		return
	}
	newName := req.Name
	if newName == "" {
		newName = current.Name
	}
	price := current.Price
	if req.Price != nil {
		price = *req.Price
	}

	if err := h.workflows.UpdateProduct(r.Context(), name, newName, price, req.Stock); err != nil {
		writeAppError(w, err)
		return
	}
	p, _ := h.catalog.Find(newName)
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	cancelActive, _ := strconv.ParseBool(r.URL.Query().Get("cancel_active"))
	name, ok := nameParam(w, r)
	if !ok {
		return
	}
	canceled, err := h.workflows.RemoveProduct(r.Context(), name, cancelActive)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if canceled == nil {
		canceled = []int{}
	}
	writeJSON(w, http.StatusOK, RemoveProductResponse{CanceledOrders: canceled})
}

func orderID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "order id must be an integer")
		return 0, false
	}
	return id, true
}

// nameParam returns the unescaped {name} segment. chi hands it back still
// escaped when the request carries a raw path.
func nameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return "", false
	}
	return name, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// writeAppError maps the error kind onto the response status.
func writeAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
