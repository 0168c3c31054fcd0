package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kiryshabutor/OrderCRM/internal/api-gateway/infra/httpx/middlewares"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/metrics"
)

// RouterOptions wires the optional parts of the router. Nil fields are skipped.
type RouterOptions struct {
	Cache          cache.Cache
	IdempotencyTTL time.Duration
	Metrics        *metrics.HTTPMetrics
	Gatherer       prometheus.Gatherer
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	if opts.Cache != nil {
		r.Use(middlewares.Idempotency(opts.Cache, opts.IdempotencyTTL))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/", handler.ListOrders)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetOrderByID)
			r.Get("/history", handler.History)
			r.Post("/items", handler.AddItem)
			r.Delete("/items/{name}", handler.RemoveItem)
			r.Put("/status", handler.SetStatus)
		})
	})

	r.Get("/revenue", handler.Revenue)
	r.Get("/stats", handler.Stats)
	r.Get("/prices", handler.Prices)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handler.ListProducts)
		r.Post("/", handler.AddProduct)
		r.Put("/{name}", handler.UpdateProduct)
		r.Delete("/{name}", handler.RemoveProduct)
	})

	return otelhttp.NewHandler(r, "ordercrm-http")
}
