package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
	"github.com/gastrack/industrial-gas-monitoring/internal/ocr"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
)

type ReadingService struct {
	store     store.Store
	images    ImageStore
	extractor ocr.Extractor
	log       zerolog.Logger
}

// SubmitRequest is one field submission. Image is an optional base64 data
// URL; when present it is uploaded and only the object key is stored.
type SubmitRequest struct {
	IndustryID string  `json:"industry_id"`
	MeterID    string  `json:"meter_id"`
	Value      float64 `json:"value"`
	Image      string  `json:"image,omitempty"`
	RecordedBy string  `json:"recorded_by"`
}

// Submit stores one reading. The id is client-generated and unique per
// submission, so resubmitting the same reading is a store-level no-op.
func (s *ReadingService) Submit(ctx context.Context, req SubmitRequest) (domain.Reading, error) {
	if req.IndustryID == "" || req.MeterID == "" {
		return domain.Reading{}, fmt.Errorf("industry and meter are required")
	}

	r := domain.Reading{
		ID:         uuid.NewString(),
		IndustryID: req.IndustryID,
		MeterID:    req.MeterID,
		Timestamp:  time.Now(),
		Value:      req.Value,
		RecordedBy: req.RecordedBy,
		IsManual:   req.Image == "",
	}

	if req.Image != "" && s.images != nil {
		mimeType, data, err := ocr.DecodeDataURL(req.Image)
		if err != nil {
			return domain.Reading{}, fmt.Errorf("invalid image payload: %w", err)
		}
		key, err := s.images.UploadReadingImage(ctx, r.ID, data, mimeType)
		if err != nil {
			// The save path never blocks on image storage; the reading
			// goes in without its photograph.
			s.log.Error().Err(err).Str("reading_id", r.ID).Msg("image upload failed, storing reading without image")
		} else {
			r.ImageRef = key
		}
	}

	if err := s.store.PutReading(ctx, r); err != nil {
		return domain.Reading{}, err
	}
	return r, nil
}

// ImageURL returns a temporary download URL for the reading's photograph,
// or "" when the reading has none or image storage is disabled.
func (s *ReadingService) ImageURL(ctx context.Context, r domain.Reading) (string, error) {
	if r.ImageRef == "" || s.images == nil {
		return "", nil
	}
	return s.images.PresignImage(ctx, r.ImageRef)
}

// Delete removes a reading and its stored photograph. Object cleanup is
// best-effort: a failed delete leaves an orphaned blob, never a half-deleted
// reading.
func (s *ReadingService) Delete(ctx context.Context, r domain.Reading) error {
	if err := s.store.DeleteReading(ctx, r.ID); err != nil {
		return err
	}
	if r.ImageRef != "" && s.images != nil {
		if err := s.images.DeleteImage(ctx, r.ImageRef); err != nil {
			s.log.Error().Err(err).Str("reading_id", r.ID).Msg("image cleanup failed")
		}
	}
	return nil
}

// ExtractValue runs OCR over a meter photograph. A nil value means the
// caller falls back to manual numeric entry.
func (s *ReadingService) ExtractValue(ctx context.Context, imageDataURL string) ocr.Result {
	if s.extractor == nil {
		return ocr.Result{}
	}
	return s.extractor.Extract(ctx, imageDataURL)
}

type mqttReading struct {
	IndustryID  string  `json:"industry_id"`
	MeterID     string  `json:"meter_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	Value       float64 `json:"value"`
	RecordedBy  string  `json:"recorded_by"`
}

// FromMQTT ingests one reading published by a field device. Malformed
// payloads are dropped; a duplicate id is a store-level no-op.
func (s *ReadingService) FromMQTT(topic string, payload []byte) error {
	var msg mqttReading
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed payload on %s: %w", topic, err)
	}
	if msg.IndustryID == "" || msg.MeterID == "" {
		return fmt.Errorf("payload on %s missing industry or meter id", topic)
	}

	ts := time.UnixMilli(msg.TimestampMs)
	if msg.TimestampMs == 0 {
		ts = time.Now()
	}
	r := domain.Reading{
		ID:         uuid.NewString(),
		IndustryID: msg.IndustryID,
		MeterID:    msg.MeterID,
		Timestamp:  ts,
		Value:      msg.Value,
		RecordedBy: msg.RecordedBy,
		IsManual:   false,
	}
	return s.store.PutReading(context.Background(), r)
}
