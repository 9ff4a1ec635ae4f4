package models

import (
	"strconv"
	"time"
)

// DispenserCount is the number of pumps on a dispenser unit.
const DispenserCount = 4

// MaxDispenseSeconds bounds a single pump run.
const MaxDispenseSeconds = 3600

// DefaultDispenserDevice is used when a caller names no device.
const DefaultDispenserDevice = "default"

// Dispenser command statuses
const (
	DispenserPending   = "pending"
	DispenserProcessed = "processed"
)

// DispenserCommand is a set of pump run times for one dispenser (dispenser_commands table).
// The newest command per device is its current state.
type DispenserCommand struct {
	ID          int64               `json:"id" db:"id"`
	DeviceID    string              `json:"device_id" db:"device_id"`
	Seconds     [DispenserCount]int `json:"-"`
	Status      string              `json:"status" db:"status"`
	RequestedBy *string             `json:"requested_by" db:"requested_by"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time          `json:"processed_at" db:"processed_at"`
}

// IsReset reports whether every pump is set to zero.
func (c *DispenserCommand) IsReset() bool {
	for _, s := range c.Seconds {
		if s != 0 {
			return false
		}
	}
	return true
}

// Values returns the device poll form: {"dispenser1": "5", ...}.
func (c *DispenserCommand) Values() map[string]string {
	return DispenserValues(c.Seconds)
}

// ToJSON returns the history form of the command.
func (c *DispenserCommand) ToJSON() map[string]any {
	m := map[string]any{
		"id":           c.ID,
		"device_id":    c.DeviceID,
		"status":       c.Status,
		"requested_by": c.RequestedBy,
		"created_at":   c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"processed_at": nil,
	}
	for i, s := range c.Seconds {
		m[DispenserKey(i)] = s
	}
	if c.ProcessedAt != nil {
		m["processed_at"] = c.ProcessedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// DispenserKey is the wire key of pump i (zero based).
func DispenserKey(i int) string {
	return "dispenser" + strconv.Itoa(i+1)
}

// DispenserValues renders run times in the string form the firmware parses.
func DispenserValues(seconds [DispenserCount]int) map[string]string {
	m := make(map[string]string, DispenserCount)
	for i, s := range seconds {
		m[DispenserKey(i)] = strconv.Itoa(s)
	}
	return m
}
