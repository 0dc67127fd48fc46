package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/logger"
	"github.com/iliyamo/flight-seat-reservation/internal/memstore"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
	"github.com/iliyamo/flight-seat-reservation/internal/router"
	"github.com/iliyamo/flight-seat-reservation/internal/security"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
	"github.com/iliyamo/flight-seat-reservation/internal/telemetry"
	"github.com/iliyamo/flight-seat-reservation/internal/validator"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: cfg.ServiceName})
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.WithError(err).Fatal("telemetry init failed")
	}

	stores, db, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("store init failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limit and cache disabled, login throttle in memory")
	}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	events := newPublisher(cfg, log)

	catalog := service.NewCatalog(stores, cache, log)
	flights := service.NewFlights(stores)
	booking := service.NewBooking(stores, events, service.BookingConfig{
		ReserveTimeout:      cfg.ReserveTimeout,
		LedgerTimeout:       cfg.LedgerTimeout,
		CompensationTimeout: cfg.CompensationTimeout,
		PublishTimeout:      cfg.PublishTimeout,
	}, log)
	lifecycle := service.NewLifecycle(stores, cache, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Tracing(cfg.ServiceName))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, router.Handlers{
		Health:    handler.Health(pinger),
		Auth:      handler.NewAuthHandler(cfg, catalog, security.NewThrottle(rdb, cfg.ThrottleMaxAttempts, cfg.ThrottleWindow), log),
		Public:    handler.NewPublicHandler(catalog, flights),
		Passenger: handler.NewPassengerHandler(booking, lifecycle, security.NewThrottle(rdb, cfg.PurchaseMaxAttempts, cfg.ThrottleWindow), log),
		Airline:   handler.NewAirlineHandler(catalog, flights, booking, lifecycle),
		Admin:     handler.NewAdminHandler(catalog, lifecycle),
	}, router.Options{
		JWTSecret:   cfg.JWTSecret,
		AdminAPIKey: cfg.AdminAPIKey,
		Cache:       cache.Middleware(),
	})
	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set: admin routes reject every request")
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver, "events": cfg.EventsDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	booking.Wait()
	if err := events.Close(); err != nil {
		log.WithError(err).Error("event publisher close")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	if err := shutdownTracing(sctx); err != nil {
		log.WithError(err).Error("tracer shutdown")
	}
}

func openStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (service.Stores, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store: data is lost on restart")
		m := memstore.New()
		return service.Stores{
			Airlines:   m.Airlines(),
			Aircraft:   m.Aircraft(),
			Airports:   m.Airports(),
			Extras:     m.Extras(),
			Passengers: m.Passengers(),
			Flights:    m.Flights(),
			Tickets:    m.Tickets(),
		}, nil, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return service.Stores{}, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return service.Stores{}, nil, err
		}
		log.Info("schema migrated")
	}
	return service.Stores{
		Airlines:   repository.NewAirlineRepo(db),
		Aircraft:   repository.NewAircraftRepo(db),
		Airports:   repository.NewAirportRepo(db),
		Extras:     repository.NewExtraRepo(db),
		Passengers: repository.NewPassengerRepo(db),
		Flights:    repository.NewFlightRepo(db),
		Tickets:    repository.NewTicketRepo(db),
	}, db, nil
}

func newPublisher(cfg config.Config, log logrus.FieldLogger) publisher {
	switch cfg.EventsDriver {
	case config.EventsRabbitMQ:
		return queue.NewRabbitPublisher(cfg.RabbitMQURL, log)
	case config.EventsKafka:
		return queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	return queue.NoopPublisher{}
}
