package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kiryshabutor/OrderCRM/internal/api-gateway/infra/httpx"
	catalogstore "github.com/kiryshabutor/OrderCRM/internal/catalog-service/adapters/txtstore"
	catalogapp "github.com/kiryshabutor/OrderCRM/internal/catalog-service/app"
	"github.com/kiryshabutor/OrderCRM/internal/config"
	"github.com/kiryshabutor/OrderCRM/internal/coordinator"
	ledgergrpc "github.com/kiryshabutor/OrderCRM/internal/ledger-service/adapters/grpc"
	ledgerstore "github.com/kiryshabutor/OrderCRM/internal/ledger-service/adapters/txtstore"
	ledgerapp "github.com/kiryshabutor/OrderCRM/internal/ledger-service/app"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/journal/sqlite"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/cache"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/metrics"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("ordercrm stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	for _, path := range []string{cfg.CatalogFile, cfg.LedgerFile, cfg.JournalDB} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	}

	catalog := catalogapp.NewService(catalogstore.New(cfg.CatalogFile))
	if err := catalog.Load(); err != nil {
		return err
	}

	var opts []ledgerapp.Option
	if cfg.JournalDB != "" {
		j, err := sqlite.Open(cfg.JournalDB)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, ledgerapp.WithJournal(j))
	}

	ledger := ledgerapp.NewService(ledgerstore.New(cfg.LedgerFile), catalog, opts...)
	// Totals are recomputed on load, so the live prices must be in place first.
	ledger.SetPrices(catalog.Prices())
	if err := ledger.Load(); err != nil {
		return err
	}

	idem := newCache(ctx, cfg)
	defer idem.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewLedgerCollector(ledger),
	)

	handler := httpx.NewHandler(ledger, catalog, coordinator.NewWorkflows(catalog, ledger))
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewRouter(handler, httpx.RouterOptions{
			Cache:          idem,
			IdempotencyTTL: cfg.IdempotencyTTL,
			Metrics:        metrics.NewHTTPMetrics(reg),
			Gatherer:       reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, health := ledgergrpc.NewServer(ledger, idem, cfg.IdempotencyTTL)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("ordercrm HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("ordercrm gRPC running", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := catalog.Save(); err != nil {
		return err
	}
	return ledger.Save()
}

func newCache(ctx context.Context, cfg config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(4096, cfg.IdempotencyTTL, cfg.ServiceName)
	}
	c := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
	if err := cache.Ping(ctx, c); err != nil {
		slog.Warn("redis unavailable, idempotency keys will fail open", "addr", cfg.RedisAddr, "error", err)
	}
	return c
}
