package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// VoucherStatus represents the lifecycle status of a voucher.
type VoucherStatus string

const (
	StatusUnused  VoucherStatus = "unused"
	StatusActive  VoucherStatus = "active"
	StatusPaused  VoucherStatus = "paused"
	StatusExpired VoucherStatus = "expired"
)

// UnmarshalJSON implements json.Unmarshaler to normalize status to lowercase.
func (s *VoucherStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	normalized := VoucherStatus(strings.ToLower(raw))

	switch normalized {
	case StatusUnused, StatusActive, StatusPaused, StatusExpired:
		*s = normalized
		return nil
	default:
		return fmt.Errorf("invalid voucher status: %s (must be unused, active, paused, or expired)", raw)
	}
}

// MarshalJSON implements json.Marshaler to ensure lowercase output.
func (s VoucherStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Voucher represents a purchased, time- and device-bounded access grant.
type Voucher struct {
	ID             string        `json:"id" db:"id"`
	Code           string        `json:"code" db:"code"`
	OwnerID        string        `json:"owner_id" db:"owner_id"`
	PlanID         string        `json:"plan_id" db:"plan_id"`
	Status         VoucherStatus `json:"status" db:"status"`
	IsActive       bool          `json:"is_active" db:"is_active"`
	UsedTime       int64         `json:"used_time" db:"used_time"` // minutes
	ActivationTime *time.Time    `json:"activation_time,omitempty" db:"activation_time"`
	ActiveDevices  int           `json:"active_devices" db:"active_devices"`
	AllowedDevices int           `json:"allowed_devices" db:"allowed_devices"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// DeviceSession represents one device identifier attached to a voucher.
// Sessions are reused across reconnects of the same device, never duplicated.
type DeviceSession struct {
	ID             string     `json:"id" db:"id"`
	VoucherID      string     `json:"voucher_id" db:"voucher_id"`
	DeviceID       string     `json:"device_id" db:"device_id"`
	Connected      bool       `json:"is_connected" db:"is_connected"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty" db:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty" db:"disconnected_at"`
	IPAddress      string     `json:"ip_address,omitempty" db:"ip_address"`
	MACAddress     string     `json:"mac_address,omitempty" db:"mac_address"`
	DeviceName     string     `json:"device_name,omitempty" db:"device_name"`
}

// ServicePlan defines the quota and device cap a voucher is sold against.
type ServicePlan struct {
	ID                 string  `json:"id" db:"id"`
	Name               string  `json:"name" db:"name"`
	Description        string  `json:"description" db:"description"`
	Price              float64 `json:"price" db:"price"`
	DurationHours      int     `json:"duration_hours" db:"duration_hours"`
	MaxDevices         int     `json:"max_devices" db:"max_devices"`
	BandwidthLimitMbps int     `json:"bandwidth_limit_mbps" db:"bandwidth_limit_mbps"`
	DataLimitMB        int     `json:"data_limit_mb" db:"data_limit_mb"`
	Active             bool    `json:"is_active" db:"is_active"`
}

// DurationMinutes returns the plan's total quota in minutes.
func (p *ServicePlan) DurationMinutes() int64 {
	return int64(p.DurationHours) * 60
}

// Wallet holds a prepaid balance for one owner.
type Wallet struct {
	OwnerID string  `json:"owner_id" db:"owner_id"`
	Balance float64 `json:"balance" db:"balance"`
}

// Transaction status values.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// Transaction records a wallet credit or debit.
type Transaction struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Type        string    `json:"type" db:"type"` // "purchase" or "funding"
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	VoucherID   string    `json:"voucher_id,omitempty" db:"voucher_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
