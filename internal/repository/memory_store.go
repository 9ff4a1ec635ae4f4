package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pool-monitor/internal/models"
)

// MemoryStore keeps everything in process memory. It is used when the database is
// disabled and by tests. RunAtomically holds the store lock for the whole callback
// and restores a snapshot when the callback fails.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	devices  map[string]models.Device
	configs  map[string]models.DeviceConfig
	readings []models.SensorReading
	alerts   []models.Alert
	users    []models.User
	commands []models.DispenserCommand

	nextDeviceID  int64
	nextConfigID  int64
	nextReadingID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		devices: map[string]models.Device{},
		configs: map[string]models.DeviceConfig{},
	}}
}

func (st *memoryState) clone() *memoryState {
	c := *st
	c.devices = make(map[string]models.Device, len(st.devices))
	for k, v := range st.devices {
		c.devices[k] = v
	}
	c.configs = make(map[string]models.DeviceConfig, len(st.configs))
	for k, v := range st.configs {
		c.configs[k] = v
	}
	c.readings = append([]models.SensorReading(nil), st.readings...)
	c.alerts = append([]models.Alert(nil), st.alerts...)
	c.users = append([]models.User(nil), st.users...)
	c.commands = append([]models.DispenserCommand(nil), st.commands...)
	return &c
}

// memoryRepo implements every repository interface over the store state.
// Inside RunAtomically the store lock is already held (locked == true).
type memoryRepo struct {
	store  *MemoryStore
	locked bool
}

func (r *memoryRepo) do(fn func(st *memoryState) error) error {
	if !r.locked {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	return fn(r.store.state)
}

func memoryUnitOfWork(r *memoryRepo) *UnitOfWork {
	return &UnitOfWork{
		Devices:   r,
		Configs:   r,
		Readings:  r,
		Alerts:    r,
		Users:     r,
		Dispenser: r,
	}
}

func (s *MemoryStore) Repos() *UnitOfWork {
	return memoryUnitOfWork(&memoryRepo{store: s})
}

func (s *MemoryStore) RunAtomically(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	committed := false
	defer func() {
		if !committed {
			s.state = snapshot
		}
	}()

	if err := fn(memoryUnitOfWork(&memoryRepo{store: s, locked: true})); err != nil {
		return err
	}
	committed = true
	return nil
}

// ---- devices ----

func (r *memoryRepo) FindDeviceByID(_ context.Context, deviceID string) (*models.Device, error) {
	var out *models.Device
	err := r.do(func(st *memoryState) error {
		d, ok := st.devices[deviceID]
		if !ok {
			return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		out = &d
		return nil
	})
	return out, err
}

func (r *memoryRepo) CreateDevice(_ context.Context, d *models.Device) (*models.Device, error) {
	if d.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	var out models.Device
	err := r.do(func(st *memoryState) error {
		if existing, ok := st.devices[d.DeviceID]; ok {
			out = existing
			return nil
		}
		st.nextDeviceID++
		out = *d
		out.ID = st.nextDeviceID
		st.devices[d.DeviceID] = out
		return nil
	})
	return &out, err
}

func (r *memoryRepo) TouchLastSeen(_ context.Context, deviceID string, at time.Time) error {
	return r.do(func(st *memoryState) error {
		d, ok := st.devices[deviceID]
		if !ok {
			return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		d.LastSeen = at
		st.devices[deviceID] = d
		return nil
	})
}

func (r *memoryRepo) ListDevices(_ context.Context) ([]models.Device, error) {
	out := []models.Device{}
	err := r.do(func(st *memoryState) error {
		for _, d := range st.devices {
			out = append(out, d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *memoryRepo) UpdateDevice(_ context.Context, deviceID string, u models.DeviceUpdate) (*models.Device, error) {
	var out models.Device
	err := r.do(func(st *memoryState) error {
		d, ok := st.devices[deviceID]
		if !ok {
			return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
		}
		if u.Name != nil {
			d.Name = *u.Name
		}
		if u.Location != nil {
			loc := *u.Location
			d.Location = &loc
		}
		st.devices[deviceID] = d
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- configs ----

func (r *memoryRepo) CreateDeviceConfig(_ context.Context, c *models.DeviceConfig) (*models.DeviceConfig, error) {
	if c.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	var out models.DeviceConfig
	err := r.do(func(st *memoryState) error {
		if existing, ok := st.configs[c.DeviceID]; ok {
			out = existing
			return nil
		}
		if _, ok := st.devices[c.DeviceID]; !ok {
			return fmt.Errorf("failed to create device config: device %s does not exist", c.DeviceID)
		}
		st.nextConfigID++
		out = *c
		out.ID = st.nextConfigID
		st.configs[c.DeviceID] = out
		return nil
	})
	return &out, err
}

func (r *memoryRepo) FindConfigByDeviceID(_ context.Context, deviceID string) (*models.DeviceConfig, error) {
	var out *models.DeviceConfig
	err := r.do(func(st *memoryState) error {
		c, ok := st.configs[deviceID]
		if !ok {
			return fmt.Errorf("config for device %s: %w", deviceID, ErrNotFound)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *memoryRepo) UpdateDeviceConfig(_ context.Context, c *models.DeviceConfig) error {
	return r.do(func(st *memoryState) error {
		existing, ok := st.configs[c.DeviceID]
		if !ok {
			return fmt.Errorf("config for device %s: %w", c.DeviceID, ErrNotFound)
		}
		updated := *c
		updated.ID = existing.ID
		st.configs[c.DeviceID] = updated
		return nil
	})
}

// ---- readings ----

func (r *memoryRepo) InsertReading(_ context.Context, rd *models.SensorReading) (int64, error) {
	err := r.do(func(st *memoryState) error {
		if _, ok := st.devices[rd.DeviceID]; !ok {
			return fmt.Errorf("failed to insert reading: device %s does not exist", rd.DeviceID)
		}
		st.nextReadingID++
		rd.ID = st.nextReadingID
		st.readings = append(st.readings, *rd)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rd.ID, nil
}

// readingsNewestFirst returns the device's readings at or after since (nil means all).
func (st *memoryState) readingsNewestFirst(deviceID string, since *time.Time) []models.SensorReading {
	out := []models.SensorReading{}
	for _, rd := range st.readings {
		if rd.DeviceID != deviceID {
			continue
		}
		if since != nil && rd.Timestamp.Before(*since) {
			continue
		}
		out = append(out, rd)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (r *memoryRepo) ListReadings(_ context.Context, deviceID string, since *time.Time, limit int) ([]models.SensorReading, error) {
	var out []models.SensorReading
	err := r.do(func(st *memoryState) error {
		out = st.readingsNewestFirst(deviceID, since)
		return nil
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *memoryRepo) LatestReading(_ context.Context, deviceID string) (*models.SensorReading, error) {
	var out *models.SensorReading
	err := r.do(func(st *memoryState) error {
		all := st.readingsNewestFirst(deviceID, nil)
		if len(all) == 0 {
			return fmt.Errorf("readings for device %s: %w", deviceID, ErrNotFound)
		}
		out = &all[0]
		return nil
	})
	return out, err
}

func (r *memoryRepo) ReadingStats(_ context.Context, deviceID string, since time.Time) (*models.ReadingStats, error) {
	var readings []models.SensorReading
	_ = r.do(func(st *memoryState) error {
		readings = st.readingsNewestFirst(deviceID, &since)
		return nil
	})

	var ph, turbidity, temperature channelAccumulator
	for _, rd := range readings {
		ph.add(rd.PH)
		turbidity.add(rd.Turbidity)
		temperature.add(rd.Temperature)
	}
	return &models.ReadingStats{
		TotalReadings: len(readings),
		PH:            ph.stats(),
		Turbidity:     turbidity.stats(),
		Temperature:   temperature.stats(),
	}, nil
}

type channelAccumulator struct {
	n             int
	sum, min, max float64
}

func (a *channelAccumulator) add(v *float64) {
	if v == nil {
		return
	}
	if a.n == 0 || *v < a.min {
		a.min = *v
	}
	if a.n == 0 || *v > a.max {
		a.max = *v
	}
	a.sum += *v
	a.n++
}

func (a *channelAccumulator) stats() models.ChannelStats {
	if a.n == 0 {
		return models.ChannelStats{}
	}
	avg, lo, hi := a.sum/float64(a.n), a.min, a.max
	return models.ChannelStats{Avg: &avg, Min: &lo, Max: &hi}
}

// ---- alerts ----

func (r *memoryRepo) FindAlerts(_ context.Context, f models.AlertFilter) ([]models.Alert, error) {
	out := []models.Alert{}
	err := r.do(func(st *memoryState) error {
		for i := len(st.alerts) - 1; i >= 0; i-- {
			a := st.alerts[i]
			if a.DeviceID == f.DeviceID && a.AlertType == f.AlertType &&
				a.Acknowledged == f.Acknowledged && a.Timestamp.After(f.Since) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (r *memoryRepo) InsertAlert(_ context.Context, a *models.Alert) (int64, error) {
	if a.DeviceID == "" {
		return 0, fmt.Errorf("device_id is required")
	}
	if a.AlertType == "" {
		return 0, fmt.Errorf("alert_type is required")
	}
	err := r.do(func(st *memoryState) error {
		a.ID = int64(len(st.alerts) + 1)
		st.alerts = append(st.alerts, *a)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (r *memoryRepo) ListAlerts(_ context.Context, deviceID string, acknowledged *bool, limit int) ([]models.Alert, error) {
	out := []models.Alert{}
	err := r.do(func(st *memoryState) error {
		for _, a := range st.alerts {
			if a.DeviceID != deviceID {
				continue
			}
			if acknowledged != nil && a.Acknowledged != *acknowledged {
				continue
			}
			out = append(out, a)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *memoryRepo) GetAlert(_ context.Context, id int64) (*models.Alert, error) {
	var out models.Alert
	err := r.do(func(st *memoryState) error {
		if id < 1 || id > int64(len(st.alerts)) {
			return fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		out = st.alerts[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *memoryRepo) AcknowledgeAlert(_ context.Context, id int64) (*models.Alert, error) {
	var out models.Alert
	err := r.do(func(st *memoryState) error {
		if id < 1 || id > int64(len(st.alerts)) {
			return fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		st.alerts[id-1].Acknowledged = true
		out = st.alerts[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- users ----

func (r *memoryRepo) CreateUser(_ context.Context, u *models.User) (int64, error) {
	if u.Username == "" {
		return 0, fmt.Errorf("username is required")
	}
	err := r.do(func(st *memoryState) error {
		for _, existing := range st.users {
			if strings.EqualFold(existing.Username, u.Username) {
				return fmt.Errorf("user %s: %w", u.Username, ErrConflict)
			}
		}
		u.ID = int64(len(st.users) + 1)
		st.users = append(st.users, *u)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (r *memoryRepo) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.do(func(st *memoryState) error {
		for _, u := range st.users {
			if u.Username == username {
				u := u
				out = &u
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	})
	return out, err
}

func (r *memoryRepo) GetUser(_ context.Context, id int64) (*models.User, error) {
	var out models.User
	err := r.do(func(st *memoryState) error {
		if id < 1 || id > int64(len(st.users)) {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		out = st.users[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *memoryRepo) ListUsers(_ context.Context) ([]models.User, error) {
	out := []models.User{}
	err := r.do(func(st *memoryState) error {
		out = append(out, st.users...)
		return nil
	})
	return out, err
}

// ---- dispenser ----

func (r *memoryRepo) InsertCommand(_ context.Context, c *models.DispenserCommand) (int64, error) {
	err := r.do(func(st *memoryState) error {
		c.ID = int64(len(st.commands) + 1)
		st.commands = append(st.commands, *c)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (r *memoryRepo) LatestCommand(_ context.Context, deviceID string) (*models.DispenserCommand, error) {
	var out *models.DispenserCommand
	err := r.do(func(st *memoryState) error {
		for i := len(st.commands) - 1; i >= 0; i-- {
			if st.commands[i].DeviceID == deviceID {
				c := st.commands[i]
				out = &c
				return nil
			}
		}
		return fmt.Errorf("dispenser commands for %s: %w", deviceID, ErrNotFound)
	})
	return out, err
}

func (r *memoryRepo) MarkCommandProcessed(_ context.Context, id int64, at time.Time) (*models.DispenserCommand, error) {
	var out models.DispenserCommand
	err := r.do(func(st *memoryState) error {
		if id < 1 || id > int64(len(st.commands)) {
			return fmt.Errorf("dispenser command %d: %w", id, ErrNotFound)
		}
		c := &st.commands[id-1]
		c.Status = models.DispenserProcessed
		if c.ProcessedAt == nil {
			t := at
			c.ProcessedAt = &t
		}
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *memoryRepo) ListCommands(_ context.Context, deviceID string, limit int) ([]models.DispenserCommand, error) {
	out := []models.DispenserCommand{}
	err := r.do(func(st *memoryState) error {
		for i := len(st.commands) - 1; i >= 0 && (limit < 0 || len(out) < limit); i-- {
			if st.commands[i].DeviceID == deviceID {
				out = append(out, st.commands[i])
			}
		}
		return nil
	})
	return out, err
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
