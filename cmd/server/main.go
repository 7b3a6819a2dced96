// Command server runs the bus trip booking API: route and layout
// administration, schedule expansion into bookable service instances,
// public service browsing and the background hold-release sweeper.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/cvidalr/bus-trip-booking/internal/clock"
	"github.com/cvidalr/bus-trip-booking/internal/config"
	"github.com/cvidalr/bus-trip-booking/internal/database"
	"github.com/cvidalr/bus-trip-booking/internal/handler"
	"github.com/cvidalr/bus-trip-booking/internal/metrics"
	"github.com/cvidalr/bus-trip-booking/internal/queue"
	"github.com/cvidalr/bus-trip-booking/internal/repository"
	"github.com/cvidalr/bus-trip-booking/internal/router"
	"github.com/cvidalr/bus-trip-booking/internal/schedule"
	queue_publisher "github.com/cvidalr/bus-trip-booking/internal/service"
	"github.com/cvidalr/bus-trip-booking/internal/sweeper"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	collector := metrics.NewCollector()
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = collector.Serve(cfg.MetricsAddr)
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
	}

	userRepo := repository.NewUserRepo(db)
	routeRepo := repository.NewRouteRepo(db)
	layoutRepo := repository.NewLayoutRepo(db)
	serviceRepo := repository.NewServiceRepo(db)
	seatRepo := repository.NewSeatRepo(db)

	clk := clock.NewSystem()
	expander := schedule.NewExpander(serviceRepo, seatRepo, cfg.Location, cfg.HorizonDays, clk,
		schedule.WithMetrics(collector))
	query := schedule.NewQuery(serviceRepo, seatRepo, cfg.Location)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := sweeper.PublisherFunc(func(ctx context.Context, count int64, at time.Time) error {
		return queue_publisher.PublishSeatsReleased(ctx, queue.SeatsReleasedEvent{
			Count:      count,
			ReleasedAt: at.UTC().Format(time.RFC3339),
		})
	})
	sw := sweeper.New(seatRepo, cfg.SweepInterval, clk,
		sweeper.WithPublisher(publisher),
		sweeper.WithMetrics(collector))
	sw.Start(ctx)
	defer sw.Stop()

	go func() {
		if err := queue.StartReleaseConsumer(); err != nil {
			log.Printf("release consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo), cfg.JWTSecret)
	router.RegisterSchedule(e,
		handler.NewRouteHandler(routeRepo, layoutRepo),
		handler.NewLayoutHandler(layoutRepo),
		handler.NewServiceHandler(cfg, routeRepo, layoutRepo, serviceRepo, seatRepo, expander, query),
		router.ScheduleDeps{
			JWTSecret:    cfg.JWTSecret,
			Redis:        rdb,
			CacheTTL:     cfg.CacheTTL,
			RateCapacity: cfg.RateCapacity,
			RateWindow:   cfg.RateWindow,
		})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown: %v", err)
		}
	}
}
