package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
)

type fakeImageStore struct {
	keys      []string
	deleted   []string
	err       error
	deleteErr error
}

func (f *fakeImageStore) UploadReadingImage(ctx context.Context, readingID string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := "readings/" + readingID
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeImageStore) PresignImage(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.example/" + key, nil
}

func (f *fakeImageStore) DeleteImage(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func newServices(uploader ImageStore) (*Services, *store.Memory) {
	mem := store.NewMemory()
	return New(mem, uploader, nil, zerolog.Nop()), mem
}

func dataURL(payload string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestSubmitManualReading(t *testing.T) {
	svcs, mem := newServices(nil)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      4321,
		RecordedBy: "reza",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.True(t, r.IsManual)
	assert.Empty(t, r.ImageRef)

	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Readings, 1)
	assert.Equal(t, 4321.0, snap.Readings[0].Value)
	assert.Equal(t, "reza", snap.Readings[0].RecordedBy)
}

func TestSubmitWithImageStoresReference(t *testing.T) {
	uploader := &fakeImageStore{}
	svcs, _ := newServices(uploader)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      100,
		Image:      dataURL("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.False(t, r.IsManual)
	assert.Equal(t, "readings/"+r.ID, r.ImageRef)
	assert.Len(t, uploader.keys, 1)
}

func TestSubmitSurvivesImageUploadFailure(t *testing.T) {
	uploader := &fakeImageStore{err: errors.New("bucket gone")}
	svcs, mem := newServices(uploader)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      100,
		Image:      dataURL("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.Empty(t, r.ImageRef)

	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Readings, 1)
}

func TestSubmitRejectsMissingIdentifiers(t *testing.T) {
	svcs, _ := newServices(nil)
	_, err := svcs.Readings.Submit(context.Background(), SubmitRequest{Value: 1})
	assert.Error(t, err)
}

func TestDeleteRemovesStoredImage(t *testing.T) {
	imgs := &fakeImageStore{}
	svcs, mem := newServices(imgs)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      100,
		Image:      dataURL("jpeg-bytes"),
	})
	require.NoError(t, err)

	require.NoError(t, svcs.Readings.Delete(context.Background(), r))
	assert.Equal(t, []string{r.ImageRef}, imgs.deleted)

	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Readings)
}

func TestDeleteSurvivesImageCleanupFailure(t *testing.T) {
	imgs := &fakeImageStore{deleteErr: errors.New("object locked")}
	svcs, mem := newServices(imgs)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      100,
		Image:      dataURL("jpeg-bytes"),
	})
	require.NoError(t, err)

	// The orphaned blob is logged, the reading still goes.
	require.NoError(t, svcs.Readings.Delete(context.Background(), r))
	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Readings)
}

func TestImageURL(t *testing.T) {
	imgs := &fakeImageStore{}
	svcs, _ := newServices(imgs)

	r, err := svcs.Readings.Submit(context.Background(), SubmitRequest{
		IndustryID: "IND-1",
		MeterID:    "M-1",
		Value:      100,
		Image:      dataURL("jpeg-bytes"),
	})
	require.NoError(t, err)

	url, err := svcs.Readings.ImageURL(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/"+r.ImageRef, url)

	url, err = svcs.Readings.ImageURL(context.Background(), domain.Reading{ID: "R-1"})
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFromMQTT(t *testing.T) {
	svcs, mem := newServices(nil)

	payload := []byte(`{"industry_id":"IND-1","meter_id":"M-1","timestamp_ms":1700000000000,"value":512,"recorded_by":"device-7"}`)
	require.NoError(t, svcs.Readings.FromMQTT("gas/readings", payload))

	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Readings, 1)
	assert.Equal(t, int64(1700000000000), snap.Readings[0].Timestamp.UnixMilli())
	assert.Equal(t, 512.0, snap.Readings[0].Value)
}

func TestFromMQTTMalformedPayload(t *testing.T) {
	svcs, mem := newServices(nil)

	assert.Error(t, svcs.Readings.FromMQTT("gas/readings", []byte("not json")))
	assert.Error(t, svcs.Readings.FromMQTT("gas/readings", []byte(`{"value":1}`)))

	snap, err := mem.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Readings)
}
