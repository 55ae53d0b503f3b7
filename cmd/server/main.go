package main

import (
	"log"

	"github.com/example/coursehub/internal/config"
	"github.com/example/coursehub/internal/database"
	"github.com/example/coursehub/internal/routes"
	"github.com/example/coursehub/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	cache, err := database.NewCache(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer cache.Close()

	imagekit := services.NewImageKitService(cfg.ImageKitPublicKey, cfg.ImageKitPrivateKey, cfg.ImageKitEndpoint)
	queue := services.NewQueueService(cfg.RabbitURL, cfg.RabbitQueue)

	app := routes.NewApp(routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Cache:    cache,
		Notifier: queue,
		Media:    imagekit,
		ImageKit: imagekit,
	})

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
