// Package app wires the application together: configuration, storage,
// domain services, gateway clients and the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/volna/booking-api/internal/domain/booking"
	"github.com/volna/booking-api/internal/domain/coupon"
	"github.com/volna/booking-api/internal/domain/order"
	"github.com/volna/booking-api/internal/domain/pricing"
	"github.com/volna/booking-api/internal/handler"
	"github.com/volna/booking-api/internal/notify"
	"github.com/volna/booking-api/internal/paysafe"
	"github.com/volna/booking-api/internal/storage/postgres"
	"github.com/volna/booking-api/pkg/health"
	"github.com/volna/booking-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	taxRate, err := cfg.ParsedTaxRate()
	if err != nil {
		return err
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	store := postgres.NewStore(pool)

	// Payment gateway.
	gateway := paysafe.NewClient(cfg.Paysafe.BaseURL, cfg.Paysafe.AccountID, cfg.Paysafe.APIKey)

	// Post-commit notifications. Disabled when no broker is configured.
	var events order.Events = order.NopEvents{}
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewPublisher(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "connect notification broker")
		}
		defer publisher.Close()
		events = publisher
	}

	// Domain services.
	codeGen, err := coupon.NewCodeGenerator(ctx, couponRepo)
	if err != nil {
		return errors.Wrap(err, "prime coupon code generator")
	}
	couponSvc := coupon.NewService(couponRepo, codeGen)
	couponEngine := coupon.NewEngine()
	ledger := booking.NewLedger()
	calc := pricing.NewCalculator(taxRate)
	checkout := order.NewCheckout(store, userRepo, profileRepo, gateway, ledger, couponEngine, calc, events)
	customPayments := order.NewCustomPayments(store, userRepo, gateway, events)

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORS.Origins,
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           86400,
	}))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(cfg.RateLimit.Rate),
		Burst: cfg.RateLimit.Burst,
	})))
	e.Use(httpmiddleware.InjectLogger(zctx.From(ctx)))
	e.Use(httpmiddleware.Instrument("booking-api", m.MeterProvider()))
	e.Use(httpmiddleware.LogRequests())

	healthSvc.Register(e)

	authn := handler.NewAuthenticator(tokenRepo, []byte(cfg.TokenPepper))
	h := handler.New(productRepo, userRepo, profileRepo, gateway, checkout, customPayments, couponSvc)
	h.Register(e, authn.Middleware)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(e, "booking-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
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
