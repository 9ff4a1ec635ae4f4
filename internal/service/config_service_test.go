package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConfigPublisher struct {
	deviceIDs []string
	docs      []models.ConfigDocument
	err       error
}

func (p *recordingConfigPublisher) PublishConfig(_ context.Context, deviceID string, doc models.ConfigDocument) error {
	p.deviceIDs = append(p.deviceIDs, deviceID)
	p.docs = append(p.docs, doc)
	return p.err
}

func newConfigService(store repository.Store, pub ConfigPublisher) *ConfigService {
	svc := NewConfigService(store, pub, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestFetchForDevice_CreatesDeviceAndDefaultConfig(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newConfigService(store, nil)
	ctx := context.Background()

	cfg, err := svc.FetchForDevice(ctx, "pool-9")
	require.NoError(t, err)
	assert.Equal(t, models.NewDefaultConfig("pool-9", testNow).ToDocument(), cfg.ToDocument())

	d, err := store.Repos().Devices.FindDeviceByID(ctx, "pool-9")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDeviceName, d.Name)

	again, err := svc.FetchForDevice(ctx, "pool-9")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID)
}

func TestFetchForDevice_DeviceWithoutConfig(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Repos().Devices.CreateDevice(ctx, models.NewDevice("legacy", testNow))
	require.NoError(t, err)

	cfg, err := newConfigService(store, nil).FetchForDevice(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, 7.4, cfg.PHOptimal)
}

func TestFetchForDevice_RequiresDeviceID(t *testing.T) {
	_, err := newConfigService(repository.NewMemoryStore(), nil).FetchForDevice(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateConfig_PartialMerge(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingConfigPublisher{}
	svc := newConfigService(store, pub)
	ctx := context.Background()

	_, err := svc.FetchForDevice(ctx, "pool-1")
	require.NoError(t, err)

	critical := 8.2
	slope := 1.05
	cfg, err := svc.UpdateConfig(ctx, "pool-1", models.ConfigPatch{
		Calibration: &models.CalibrationPatch{PHSlope: &slope},
		Thresholds:  &models.ThresholdsPatch{PH: &models.TierPatch{Critical: &critical}},
	})
	require.NoError(t, err)
	assert.Equal(t, 8.2, cfg.PHCritical)
	assert.Equal(t, 1.05, cfg.PHSlope)
	assert.Equal(t, 7.4, cfg.PHOptimal, "untouched leaf keeps its value")
	assert.Equal(t, 50.0, cfg.TurbidityCritical)

	stored, err := svc.GetConfig(ctx, "pool-1")
	require.NoError(t, err)
	assert.Equal(t, 8.2, stored.PHCritical)

	require.Equal(t, []string{"pool-1"}, pub.deviceIDs)
	assert.Equal(t, 8.2, pub.docs[0].Thresholds.PH.Critical)
}

func TestUpdateConfig_UnknownDevice(t *testing.T) {
	pub := &recordingConfigPublisher{}
	_, err := newConfigService(repository.NewMemoryStore(), pub).UpdateConfig(context.Background(), "ghost", models.ConfigPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, pub.deviceIDs)
}

func TestUpdateConfig_CreatesMissingConfig(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Repos().Devices.CreateDevice(ctx, models.NewDevice("legacy", testNow))
	require.NoError(t, err)

	post := 5000
	cfg, err := newConfigService(store, nil).UpdateConfig(ctx, "legacy", models.ConfigPatch{
		Intervals: &models.IntervalsPatch{PostInterval: &post},
	})
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.PostInterval)
	assert.Equal(t, 60000, cfg.ConfigInterval)
}

func TestUpdateConfig_RejectsNonPositiveInterval(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newConfigService(store, nil)
	ctx := context.Background()
	_, err := svc.FetchForDevice(ctx, "pool-1")
	require.NoError(t, err)

	zero := 0
	_, err = svc.UpdateConfig(ctx, "pool-1", models.ConfigPatch{
		Intervals: &models.IntervalsPatch{ConfigInterval: &zero},
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	stored, err := svc.GetConfig(ctx, "pool-1")
	require.NoError(t, err)
	assert.Equal(t, 60000, stored.ConfigInterval)
}

func TestUpdateConfig_PublishFailureIsNotFatal(t *testing.T) {
	store := repository.NewMemoryStore()
	pub := &recordingConfigPublisher{err: errors.New("broker offline")}
	svc := newConfigService(store, pub)
	ctx := context.Background()
	_, err := svc.FetchForDevice(ctx, "pool-1")
	require.NoError(t, err)

	_, err = svc.UpdateConfig(ctx, "pool-1", models.ConfigPatch{})
	assert.NoError(t, err)
}

func TestDeviceService_Update(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	_, err := store.Repos().Devices.CreateDevice(ctx, models.NewDevice("pool-1", testNow))
	require.NoError(t, err)
	svc := NewDeviceService(store, zap.NewNop())

	loc := "Backyard"
	d, err := svc.UpdateDevice(ctx, "pool-1", models.DeviceUpdate{Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDeviceName, d.Name)
	require.NotNil(t, d.Location)
	assert.Equal(t, "Backyard", *d.Location)

	blank := " "
	_, err = svc.UpdateDevice(ctx, "pool-1", models.DeviceUpdate{Name: &blank})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.UpdateDevice(ctx, "ghost", models.DeviceUpdate{Location: &loc})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetDevice(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
