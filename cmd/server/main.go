package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/sports-class-booking/internal/config"
	"github.com/iliyamo/sports-class-booking/internal/database"
	"github.com/iliyamo/sports-class-booking/internal/handler"
	"github.com/iliyamo/sports-class-booking/internal/middleware"
	"github.com/iliyamo/sports-class-booking/internal/payment"
	"github.com/iliyamo/sports-class-booking/internal/queue"
	"github.com/iliyamo/sports-class-booking/internal/repository"
	"github.com/iliyamo/sports-class-booking/internal/router"
	"github.com/iliyamo/sports-class-booking/internal/service"
)

func main() {
	os.Exit(run())
}

// run serves the API until a signal or a listener error and returns the
// process exit code.
func run() int {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	logger := e.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Errorf("database: %v", err)
		return 1
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		logger.Warnf("redis unavailable, running without cache and rate limits: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warnf("rabbitmq unavailable, enrollment events disabled: %v", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	var gateway payment.Gateway
	switch cfg.PaymentGateway {
	case "fake":
		logger.Warn("using the in-memory payment gateway; no real charges are made")
		gateway = payment.NewFake()
	default:
		gateway = payment.NewStripe(cfg.PaymentSecretKey)
	}

	users := repository.NewUserRepo(db)
	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	payments := repository.NewPaymentRepo(db)
	settlements := repository.NewSettlementRepo(db, classes, reservations, payments)

	reservationSvc := service.NewReservations(reservations, classes, payments, logger)
	settlementSvc := service.NewSettlement(reservations, payments, settlements, gateway, events, cfg.PaymentCurrency, logger)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.Register(e, router.Deps{
		JWTSecret:    cfg.JWTSecret,
		Roles:        users,
		DB:           db,
		Cache:        cache,
		RateLimit:    middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
		Auth:         handler.NewAuthHandler(cfg.JWTSecret, cfg.AccessTTL, users, cfg.RequestTimeout),
		Users:        handler.NewUserHandler(users, cfg.BcryptCost, cfg.RequestTimeout),
		Classes:      handler.NewClassHandler(classes, users, cache, cfg.RequestTimeout),
		Reservations: handler.NewReservationHandler(reservationSvc, cfg.RequestTimeout),
		Payments:     handler.NewPaymentHandler(settlementSvc, cache, cfg.RequestTimeout),
	})

	addr := ":" + cfg.Port
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s (env=%s, gateway=%s)", addr, cfg.Env, cfg.PaymentGateway)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-serveErr:
		if ok {
			logger.Errorf("server: %v", err)
			code = 1
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
		code = 1
	}
	return code
}

func logLevel(s string) log.Lvl {
	switch s {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
