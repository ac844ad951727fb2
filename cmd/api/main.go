package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gastrack/industrial-gas-monitoring/internal/config"
	httpHandlers "github.com/gastrack/industrial-gas-monitoring/internal/http"
	"github.com/gastrack/industrial-gas-monitoring/internal/images"
	"github.com/gastrack/industrial-gas-monitoring/internal/ocr"
	"github.com/gastrack/industrial-gas-monitoring/internal/service"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx := context.Background()
	st, err := store.New(ctx, store.Config{
		Backend:      config.StoreBackend(),
		DSN:          config.DBDSN(),
		AWSRegion:    config.AWSRegion(),
		DynamoPrefix: config.DynamoTablePrefix(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("store connect failed")
	}
	defer st.Close()

	var imgs service.ImageStore
	if config.UseCloudServices() {
		s3c, err := images.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client init failed")
		}
		imgs = s3c
	}

	var extractor ocr.Extractor
	if key := config.GeminiAPIKey(); key != "" {
		gem, err := ocr.NewGemini(ctx, key, config.GeminiModel(), log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("ocr client init failed")
		}
		extractor = gem
	}

	svcs := service.New(st, imgs, extractor, log.Logger)
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(app, svcs, log.Logger)

	addr := config.APIAddr()
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}
