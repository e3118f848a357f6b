package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"hotseat/config"
	"hotseat/handlers"
	"hotseat/middleware"
	"hotseat/routes"
	"hotseat/services"
	"hotseat/store"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub()

	// Pick storage and event transport. Postgres runs behind Redis so that
	// several instances share events; the memory store is a single instance.
	var (
		st       store.Store
		notifier services.Notifier = hub
		cache    services.StateCache
	)
	switch cfg.Store {
	case config.StoreMemory:
		st = store.NewMemoryStore(nil)
		log.Printf("Using in-memory store")
	default:
		db, err := config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		gormStore := store.NewGormStore(db)
		if err := gormStore.Migrate(); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		st = gormStore

		redisClient := config.InitRedis(cfg)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis:", err)
		}
		redisNotifier := services.NewRedisNotifier(redisClient)
		notifier, cache = redisNotifier, redisNotifier
		go hub.Forward(ctx, redisClient)
	}

	// Initialize services
	questionService := services.NewQuestionService(st)
	if cfg.SeedQuestions {
		n, err := questionService.Seed(ctx)
		if err != nil {
			log.Fatal("Failed to seed questions:", err)
		}
		if n > 0 {
			log.Printf("Seeded %d questions", n)
		}
	}

	timers := services.NewPhaseTimers(notifier, cfg.TimerTick)
	defer timers.Close()

	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	matchService := services.NewMatchService(st, questionService, notifier, cache, timers, services.MatchOptions{
		RevealDwell:          cfg.RevealDwell,
		AvoidRepeatQuestions: cfg.AvoidRepeatQuestions,
	})
	roomService := services.NewRoomService(st, authService, matchService, nil)

	// Initialize WebSocket hub
	hub.Attach(matchService, roomService)
	go hub.Run()

	n, err := matchService.RestoreTimers(ctx)
	if err != nil {
		log.Fatal("Failed to restore timers:", err)
	}
	if n > 0 {
		log.Printf("Restored %d room timers", n)
	}

	// Setup Gin router
	router := gin.Default()
	router.Use(middleware.CORS())

	routes.SetupRoutes(router, routes.Handlers{
		Rooms:     handlers.NewRoomHandler(roomService, matchService),
		Match:     handlers.NewMatchHandler(roomService, matchService),
		Questions: handlers.NewQuestionHandler(questionService),
	}, hub, roomService, authService)

	// Start server
	log.Printf("Server starting on %s", cfg.Addr())
	if err := router.Run(cfg.Addr()); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
