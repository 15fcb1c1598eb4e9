package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/hotspotd/internal/storage"
)

const timeLayout = time.RFC3339Nano

func formatNullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func parseNullableTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseVoucher converts a Redis hash to a Voucher
func parseVoucher(data map[string]string) (*storage.Voucher, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	usedTime, err := strconv.ParseInt(data["used_time"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse used_time: %w", err)
	}

	activeDevices, err := strconv.Atoi(data["active_devices"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse active_devices: %w", err)
	}

	allowedDevices, err := strconv.Atoi(data["allowed_devices"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse allowed_devices: %w", err)
	}

	isActive, err := strconv.ParseBool(data["is_active"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse is_active: %w", err)
	}

	activationTime, err := parseNullableTime(data["activation_time"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse activation_time: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &storage.Voucher{
		ID:             data["id"],
		Code:           data["code"],
		OwnerID:        data["owner_id"],
		PlanID:         data["plan_id"],
		Status:         storage.VoucherStatus(data["status"]),
		IsActive:       isActive,
		UsedTime:       usedTime,
		ActivationTime: activationTime,
		ActiveDevices:  activeDevices,
		AllowedDevices: allowedDevices,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// parseDeviceSession converts a Redis hash to a DeviceSession
func parseDeviceSession(data map[string]string) (*storage.DeviceSession, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	connected, err := strconv.ParseBool(data["is_connected"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse is_connected: %w", err)
	}

	connectedAt, err := parseNullableTime(data["connected_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse connected_at: %w", err)
	}

	disconnectedAt, err := parseNullableTime(data["disconnected_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse disconnected_at: %w", err)
	}

	return &storage.DeviceSession{
		ID:             data["id"],
		VoucherID:      data["voucher_id"],
		DeviceID:       data["device_id"],
		Connected:      connected,
		ConnectedAt:    connectedAt,
		DisconnectedAt: disconnectedAt,
		IPAddress:      data["ip_address"],
		MACAddress:     data["mac_address"],
		DeviceName:     data["device_name"],
	}, nil
}

// parseServicePlan converts a Redis hash to a ServicePlan
func parseServicePlan(data map[string]string) (*storage.ServicePlan, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	price, err := strconv.ParseFloat(data["price"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	durationHours, err := strconv.Atoi(data["duration_hours"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_hours: %w", err)
	}

	maxDevices, err := strconv.Atoi(data["max_devices"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse max_devices: %w", err)
	}

	bandwidth, err := strconv.Atoi(data["bandwidth_limit_mbps"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse bandwidth_limit_mbps: %w", err)
	}

	dataLimit, err := strconv.Atoi(data["data_limit_mb"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse data_limit_mb: %w", err)
	}

	active, err := strconv.ParseBool(data["is_active"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse is_active: %w", err)
	}

	return &storage.ServicePlan{
		ID:                 data["id"],
		Name:               data["name"],
		Description:        data["description"],
		Price:              price,
		DurationHours:      durationHours,
		MaxDevices:         maxDevices,
		BandwidthLimitMbps: bandwidth,
		DataLimitMB:        dataLimit,
		Active:             active,
	}, nil
}

// parseTransaction converts a Redis hash to a Transaction
func parseTransaction(data map[string]string) (*storage.Transaction, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	amount, err := strconv.ParseFloat(data["amount"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &storage.Transaction{
		ID:          data["id"],
		OwnerID:     data["owner_id"],
		Amount:      amount,
		Type:        data["type"],
		Description: data["description"],
		Status:      data["status"],
		VoucherID:   data["voucher_id"],
		CreatedAt:   createdAt,
	}, nil
}
