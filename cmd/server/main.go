package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil disables cache and rate limiting

	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)

	holdSvc := service.NewHoldService(db, events, seats, service.HoldConfig{
		TTL:             cfg.HoldTTL,
		MaxSeatsPerUser: cfg.MaxSeatsPerUser,
		TxTimeout:       cfg.TxTimeout,
	})
	bookingSvc := service.NewBookingService(db, events, seats, bookings, payments,
		queue.PublishBookingConfirmed, cfg.TxTimeout)
	eventSvc := service.NewEventService(db, events, seats, cfg.TxTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background reclamation: expired holds go back to AVAILABLE and
	// overdue PENDING bookings are expired.  Both sweeps are idempotent
	// so a missed or doubled tick is harmless.
	reaper := service.NewReaper(cfg.SweepInterval, cfg.TxTimeout)
	reaper.Register("expired-holds", holdSvc.ReleaseExpiredHolds)
	reaper.Register("pending-bookings", bookingSvc.ExpirePending)
	go reaper.Run(ctx)

	go func() {
		if err := queue.StartConfirmationConsumer(); err != nil {
			log.Printf("booking-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Events:   handler.NewEventHandler(eventSvc),
		Holds:    handler.NewHoldHandler(holdSvc),
		Bookings: handler.NewBookingHandler(bookingSvc),
	}, cfg, rdb)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TxTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
