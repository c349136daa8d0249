package main // Entry point package

import (
    "log"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-inventory/internal/cache"
    "github.com/iliyamo/ticket-inventory/internal/config"
    "github.com/iliyamo/ticket-inventory/internal/database"
    "github.com/iliyamo/ticket-inventory/internal/handler"
    "github.com/iliyamo/ticket-inventory/internal/lockstore"
    "github.com/iliyamo/ticket-inventory/internal/middleware"
    "github.com/iliyamo/ticket-inventory/internal/queue"
    "github.com/iliyamo/ticket-inventory/internal/repository"
    "github.com/iliyamo/ticket-inventory/internal/router"
    "github.com/iliyamo/ticket-inventory/internal/service"
    "github.com/iliyamo/ticket-inventory/internal/waitingroom"
    "github.com/iliyamo/ticket-inventory/internal/worker"
)

func main() {
    // Load a local .env when present; real deployments set the
    // environment directly.
    _ = godotenv.Load()

    cfg := config.Load()
    rlCfg := config.LoadRateLimitConfig()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database connection failed: %v", err)
    }
    defer db.Close()

    // Redis carries the seat locks, the waiting room and every cache.
    // The engine fails closed without it, so a missing client is fatal.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Fatal("redis connection failed: seat locks and waiting room require it")
    }
    defer rdb.Close()

    seatRepo := repository.NewSeatRepo(db)
    eventRepo := repository.NewEventRepo(db)
    locks := lockstore.NewSeatLockStore(rdb)
    availability := cache.NewAvailabilityCache(rdb, cfg.AvailabilityCacheTTL)
    reservations := cache.NewReservationCache(rdb, cfg.HoldDuration)
    queueStore := waitingroom.NewStore(rdb)

    publishEvents := os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != ""
    reservationSvc := service.NewReservationService(seatRepo, locks, availability, reservations, cfg.HoldDuration, publishEvents)
    waitingRoomSvc := service.NewWaitingRoomService(queueStore, cfg.ActiveSessionTTL, cfg.AdmissionRatePerSec, cfg.QueueInterval, cfg.JWTSecret)

    if publishEvents {
        // The consumer is an observer (audit log of confirmed holds); it
        // reconnects on its own and never blocks the API.
        go func() {
            if err := queue.StartReservationConsumer(); err != nil {
                log.Printf("rabbitmq consumer stopped: %v", err)
            }
        }()
    }

    sweeper, err := worker.NewSweeper(reservationSvc, cfg.CleanupInterval)
    if err != nil {
        log.Fatalf("sweeper setup failed: %v", err)
    }
    sweeper.Start()
    defer sweeper.Stop()

    e := echo.New()
    e.HideBanner = true
    e.Use(middleware.SessionIdentity())

    router.RegisterRoutes(e)
    router.RegisterWaitingRoom(e, handler.NewWaitingRoomHandler(waitingRoomSvc), rlCfg, rdb)
    router.RegisterInventory(e, handler.NewEventHandler(eventRepo), handler.NewAvailabilityHandler(reservationSvc), handler.NewReservationHandler(reservationSvc), waitingRoomSvc)
    router.RegisterInternal(e, handler.NewAdminHandler(waitingRoomSvc, reservationSvc, cfg.MaxConcurrent))

    // Stop processors before the listener goes away so no admit tick runs
    // against a closing Redis client.
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
    go func() {
        <-stop
        log.Println("shutting down")
        waitingRoomSvc.StopAllProcessors()
        sweeper.Stop()
        _ = e.Close()
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Println(err)
    }
}
