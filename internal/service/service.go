package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gastrack/industrial-gas-monitoring/internal/ocr"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
)

// ImageStore is the slice of the S3 wrapper the reading path needs. Nil
// disables image storage and readings stay text-only.
type ImageStore interface {
	UploadReadingImage(ctx context.Context, readingID string, data []byte, contentType string) (string, error)
	PresignImage(ctx context.Context, key string) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

type Services struct {
	Store    store.Store
	Readings *ReadingService
}

func New(st store.Store, imgs ImageStore, extractor ocr.Extractor, logger zerolog.Logger) *Services {
	return &Services{
		Store: st,
		Readings: &ReadingService{
			store:     st,
			images:    imgs,
			extractor: extractor,
			log:       logger,
		},
	}
}
