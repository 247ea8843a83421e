package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"

	"lms/cache"
	"lms/config"
	"lms/live"
	"lms/middleware"
	"lms/routes"
	"lms/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(os.Getenv("APP_ENV"))
	defer logger.Sync()

	// Redis backs token revocation and live change streams
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	tokens := cache.NewTokenCache(rdb)
	hub := live.NewHub(rdb, logger)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, logger, tokens, hub)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
