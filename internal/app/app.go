// Package app wires the loyalty API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/loyalty-discount/internal/domain/currency"
	"github.com/xenking/loyalty-discount/internal/domain/loyalty"
	"github.com/xenking/loyalty-discount/internal/domain/order"
	"github.com/xenking/loyalty-discount/internal/handler"
	"github.com/xenking/loyalty-discount/internal/repository"
	"github.com/xenking/loyalty-discount/pkg/health"
	"github.com/xenking/loyalty-discount/pkg/httpmiddleware"
)

// ServiceName is reported in telemetry.
const ServiceName = "loyalty-api"

// NewPipeline assembles the order-total modules around engine.
func NewPipeline(f currency.Formatter, engine *loyalty.Engine) (*order.Pipeline, error) {
	return order.NewPipeline(
		order.NewSubtotalModule(f, order.SortSubtotal),
		order.NewShippingModule(f, order.SortShipping),
		order.NewTaxModule(f, order.SortTax),
		loyalty.NewModule(engine),
		order.NewTotalModule(f, order.SortTotal),
	)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	registry, err := currency.NewRegistry(cfg.DefaultCurrency, currency.Defaults()...)
	if err != nil {
		return errors.Wrap(err, "currency registry")
	}

	engine, err := loyalty.NewEngine(cfg.Loyalty, repository.NewHistoryRepository(pool), registry,
		loyalty.WithTracerProvider(m.TracerProvider()),
		loyalty.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create loyalty engine")
	}
	if err := engine.Check(); err != nil {
		lg.Warn("Loyalty discount disabled by configuration", zap.Error(err))
	} else {
		lg.Info("Loyalty discount configured",
			zap.Bool("enabled", cfg.Loyalty.Enabled),
			zap.String("period", cfg.Loyalty.Period),
			zap.String("table", cfg.Loyalty.Table),
			zap.String("order_status", cfg.Loyalty.OrderStatus),
		)
	}

	pipeline, err := NewPipeline(registry, engine)
	if err != nil {
		return errors.Wrap(err, "create order-total pipeline")
	}
	codes := make([]string, 0, len(pipeline.Modules()))
	for _, mod := range pipeline.Modules() {
		codes = append(codes, mod.Code())
	}
	lg.Info("Order-total pipeline ready", zap.Strings("modules", codes))

	authn := handler.NewAuthenticator(repository.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(pipeline, engine)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, authn)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument(ServiceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Rate:  cfg.RateLimit.Rate,
				Burst: cfg.RateLimit.Burst,
			}),
		),
	}

	healthSvc.SetReady(true)

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
