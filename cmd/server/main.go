package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/monitoring"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	logger := log.New("event-ticketing")
	logger.SetHeader(`${time_rfc3339} ${level} ${short_file}:${line}`)

	cfg := config.Load() // Load .env and environment config
	if cfg.Env == "dev" {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unreachable: response cache and rate limits disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	store := repository.NewStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	venues := repository.NewVenueRepo(db)
	speakers := repository.NewSpeakerRepo(db)
	types := repository.NewTicketTypeRepo(db)
	orders := repository.NewOrderRepo(db)

	// Broker: publisher for the workflows, consumer writing booking.log
	var publisher service.Publisher = service.NopPublisher{}
	if qcfg := config.LoadQueueConfig(); qcfg.Enabled {
		amqpPub := service.NewAMQPPublisher(qcfg.URL, logger)
		defer amqpPub.Close()
		publisher = amqpPub
		consumer := queue.NewConsumer(qcfg.URL, qcfg.LogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("booking-consumer stopped: %v", err)
			}
		}()
	}

	// Workflows
	bcfg := config.LoadBookingConfig()
	booking := service.NewBookingService(store, events, types, orders, bcfg, publisher, logger)
	cancellation := service.NewCancellationService(store, types, orders, bcfg, publisher, logger)
	catalog := service.NewCatalogService(store, events, types, orders, logger)

	go monitoring.NewMonitor(types, config.LoadMonitorInterval(), logger).Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Infoj(log.JSON{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
			})
			return nil
		},
	}))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	guards := router.Guards{
		JWTSecret:    cfg.JWTSecret,
		Users:        users,
		Cache:        middleware.NewResponseCache(config.LoadCacheConfig(), rdb),
		BookingLimit: middleware.NewTokenBucket(config.LoadBookingRateLimitConfig(), rdb),
	}
	tickets := &handler.TicketHandler{Booking: booking, Cancellation: cancellation, Orders: orders}

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), guards)
	router.RegisterPublic(e, &handler.PublicHandler{Events: events, Venues: venues, Speakers: speakers, TicketTypes: types}, guards)
	router.RegisterAttendee(e, tickets, guards)
	router.RegisterAdmin(e, tickets, guards)
	router.RegisterOrganizer(e, &handler.OrganizerHandler{
		Events:   events,
		Venues:   venues,
		Speakers: speakers,
		Orders:   orders,
		Catalog:  catalog,
	}, guards)

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
