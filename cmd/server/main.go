package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/travelhub/busticket/internal/config"
	"github.com/travelhub/busticket/internal/database"
	"github.com/travelhub/busticket/internal/handler"
	"github.com/travelhub/busticket/internal/logging"
	"github.com/travelhub/busticket/internal/middleware"
	"github.com/travelhub/busticket/internal/payment"
	"github.com/travelhub/busticket/internal/queue"
	"github.com/travelhub/busticket/internal/repository"
	"github.com/travelhub/busticket/internal/router"
	"github.com/travelhub/busticket/internal/service"
	"github.com/travelhub/busticket/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("reading .env: %v", err)
	}
	cfg := config.Load()
	logger := logging.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := telemetry.Init(ctx, config.LoadTelemetryConfig())
	if err != nil {
		logger.Warn("telemetry disabled", "err", err)
	}
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable; search cache and rate limit off")
	} else {
		defer rdb.Close()
	}

	trips := repository.NewTripRepo(db)
	legs := repository.NewLegRepo(db)
	seats := repository.NewSeatRepo(db)
	tickets := repository.NewTicketRepo(db)
	validate := service.NewValidator()

	catalog := service.NewCatalogService(trips, legs, seats, service.CatalogOptions{
		PageSize:     cfg.SearchPageSize,
		Location:     cfg.Location,
		QueryTimeout: cfg.QueryTimeout,
		Metrics:      metrics,
	})
	reservations := service.NewReservationService(trips, seats, tickets, legs, service.ReservationOptions{
		PendingTTL:   cfg.PendingTTL,
		QueryTimeout: cfg.QueryTimeout,
		Metrics:      metrics,
		Validator:    validate,
	})
	payments := service.NewPaymentService(tickets, legs, payment.NewClient(cfg.Payment), queue.NewPublisher(cfg.AMQPURL), service.PaymentOptions{
		ReturnURL:     cfg.Payment.ReturnURL,
		CancelURL:     cfg.Payment.CancelURL,
		Description:   cfg.Payment.Description,
		QueryTimeout:  cfg.QueryTimeout,
		NotifyTimeout: 10 * time.Second,
		Metrics:       metrics,
		Logger:        logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator(validate)
	e.Use(middleware.RequestID(), middleware.RequestLogger(logger))

	guards := router.Guards{
		JWTSecret:   cfg.JWTSecret,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		SearchCache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	}
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, handler.NewTripHandler(catalog, reservations, cfg.Location), guards)
	router.RegisterTickets(e,
		handler.NewTicketHandler(reservations, payments, cfg.Location),
		handler.NewPaymentHandler(payments, cfg.Payment.ChecksumKey),
		guards)
	router.RegisterAdmin(e, handler.NewAdminHandler(catalog), guards)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(e, "busticket"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	// Confirmations already dispatched still get published.
	payments.Wait()
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", "err", err)
	}
}
