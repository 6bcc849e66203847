package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/config"
	"github.com/stephan018/sportsync-connect-sub000/internal/database"
	"github.com/stephan018/sportsync-connect-sub000/internal/routes"
	"github.com/stephan018/sportsync-connect-sub000/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogFile, cfg.AppEnv == "development")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	if cfg.DBUrl == "" {
		zapLogger.Fatal("DB_URL is required")
	}
	db, err := database.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	app := fiber.New()

	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	svc := routes.RegisterRoutes(app, cfg, db, zapLogger)

	// Confirmed sessions flip to completed on their own once the grace
	// period after the end time has passed.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 10m", func() {
		if _, err := svc.Booking.CompleteElapsedSessions(context.Background(), cfg.CompletionGraceHours); err != nil {
			zapLogger.Error("completion sweep failed", zap.Error(err))
		}
	}); err != nil {
		zapLogger.Fatal("Failed to schedule completion sweep", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Server failed to start", zap.Error(err))
	}
}
