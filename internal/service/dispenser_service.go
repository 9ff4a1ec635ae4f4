package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pool-monitor/internal/metrics"
	"pool-monitor/internal/models"
	"pool-monitor/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultDispenserHistory = 20
	MaxDispenserHistory     = 200
)

// DispenserService stores pump run times for the dispenser units to poll.
type DispenserService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewDispenserService(store repository.Store, logger *zap.Logger) *DispenserService {
	return &DispenserService{store: store, logger: logger, now: time.Now}
}

func dispenserDevice(deviceID string) string {
	if id := strings.TrimSpace(deviceID); id != "" {
		return id
	}
	return models.DefaultDispenserDevice
}

// Current returns the run times the device should execute: those of the newest command
// while it is pending, all zeros otherwise.
func (s *DispenserService) Current(ctx context.Context, deviceID string) (map[string]string, error) {
	deviceID = dispenserDevice(deviceID)
	cmd, err := s.store.Repos().Dispenser.LatestCommand(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.DispenserValues([models.DispenserCount]int{}), nil
		}
		return nil, fmt.Errorf("failed to load dispenser command: %w", err)
	}
	if cmd.Status != models.DispenserPending {
		return models.DispenserValues([models.DispenserCount]int{}), nil
	}
	return cmd.Values(), nil
}

// Set stores a new pending command, replacing whatever the device had not executed yet.
func (s *DispenserService) Set(ctx context.Context, deviceID string, seconds [models.DispenserCount]int, requestedBy string) (*models.DispenserCommand, error) {
	for i, v := range seconds {
		if v < 0 || v > models.MaxDispenseSeconds {
			return nil, fmt.Errorf("%w: %s must be between 0 and %d", ErrInvalidRequest, models.DispenserKey(i), models.MaxDispenseSeconds)
		}
	}

	cmd := &models.DispenserCommand{
		DeviceID:  dispenserDevice(deviceID),
		Seconds:   seconds,
		Status:    models.DispenserPending,
		CreatedAt: s.now().UTC(),
	}
	if requestedBy != "" {
		cmd.RequestedBy = &requestedBy
	}

	id, err := s.store.Repos().Dispenser.InsertCommand(ctx, cmd)
	if err != nil {
		s.logger.Error("InsertCommand failed", zap.String("device_id", cmd.DeviceID), zap.Error(err))
		return nil, fmt.Errorf("failed to store dispenser command: %w", err)
	}
	cmd.ID = id

	kind := "set"
	if cmd.IsReset() {
		kind = "reset"
	}
	metrics.IncDispenserCommand(kind)
	s.logger.Info("Dispenser command stored",
		zap.Int64("command_id", id),
		zap.String("device_id", cmd.DeviceID),
		zap.String("kind", kind),
		zap.Ints("seconds", seconds[:]),
	)
	return cmd, nil
}

// Reset stores an all-zero command.
func (s *DispenserService) Reset(ctx context.Context, deviceID, requestedBy string) (*models.DispenserCommand, error) {
	return s.Set(ctx, deviceID, [models.DispenserCount]int{}, requestedBy)
}

// Ack marks the device's pending command processed. Returns ErrNotFound when nothing is pending.
func (s *DispenserService) Ack(ctx context.Context, deviceID string) (*models.DispenserCommand, error) {
	deviceID = dispenserDevice(deviceID)
	var cmd *models.DispenserCommand

	err := s.store.RunAtomically(ctx, func(uow *repository.UnitOfWork) error {
		latest, err := uow.Dispenser.LatestCommand(ctx, deviceID)
		if err != nil {
			return err
		}
		if latest.Status != models.DispenserPending {
			return fmt.Errorf("pending dispenser command for %s: %w", deviceID, ErrNotFound)
		}
		cmd, err = uow.Dispenser.MarkCommandProcessed(ctx, latest.ID, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncDispenserCommand("ack")
	s.logger.Info("Dispenser command processed",
		zap.Int64("command_id", cmd.ID),
		zap.String("device_id", deviceID),
	)
	return cmd, nil
}

// History returns commands newest first.
func (s *DispenserService) History(ctx context.Context, deviceID string, limit int) ([]models.DispenserCommand, error) {
	if limit <= 0 {
		limit = DefaultDispenserHistory
	}
	if limit > MaxDispenserHistory {
		limit = MaxDispenserHistory
	}
	cmds, err := s.store.Repos().Dispenser.ListCommands(ctx, dispenserDevice(deviceID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispenser commands: %w", err)
	}
	return cmds, nil
}

// ParseDispenserValues reads dispenser1..dispenser4 from a decoded JSON body. Values may
// be whole numbers or numeric strings; missing keys are 0.
func ParseDispenserValues(body map[string]any) ([models.DispenserCount]int, error) {
	var seconds [models.DispenserCount]int
	for i := range seconds {
		key := models.DispenserKey(i)
		raw, ok := body[key]
		if !ok || raw == nil {
			continue
		}
		v, err := wholeSeconds(raw)
		if err != nil {
			return seconds, fmt.Errorf("%w: %s %v", ErrInvalidRequest, key, err)
		}
		if v < 0 || v > models.MaxDispenseSeconds {
			return seconds, fmt.Errorf("%w: %s must be between 0 and %d", ErrInvalidRequest, key, models.MaxDispenseSeconds)
		}
		seconds[i] = v
	}
	return seconds, nil
}

func wholeSeconds(raw any) (int, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		return v, nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, errors.New("must be a number")
		}
		f = n
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.New("must be a number")
		}
		f = n
	default:
		return 0, errors.New("must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.New("must be a whole number of seconds")
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("must be between 0 and %d", models.MaxDispenseSeconds)
	}
	return int(f), nil
}
