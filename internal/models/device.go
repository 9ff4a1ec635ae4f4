package models

import "time"

// DefaultDeviceName is assigned to devices registered on first contact.
const DefaultDeviceName = "Pool Monitor"

// Device is a registered pool monitor (devices table). DeviceID is assigned by the device firmware and never changes.
type Device struct {
	ID           int64     `json:"id" db:"id"`
	DeviceID     string    `json:"device_id" db:"device_id"`
	Name         string    `json:"name" db:"name"`
	Location     *string   `json:"location" db:"location"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	LastSeen     time.Time `json:"last_seen" db:"last_seen"`
}

// NewDevice builds a device with the first-contact defaults.
func NewDevice(deviceID string, now time.Time) *Device {
	return &Device{
		DeviceID:     deviceID,
		Name:         DefaultDeviceName,
		RegisteredAt: now,
		LastSeen:     now,
	}
}

// DeviceUpdate carries the dashboard-editable fields. Nil fields are left unchanged.
type DeviceUpdate struct {
	Name     *string `json:"name,omitempty"`
	Location *string `json:"location,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u DeviceUpdate) IsEmpty() bool {
	return u.Name == nil && u.Location == nil
}
