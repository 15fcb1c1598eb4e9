package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/hotspotd/internal/storage"
)

type deviceSessionStore struct {
	client *redis.Client
}

func sessionKey(voucherID, deviceID string) string {
	return fmt.Sprintf("hotspotd:session:%s:%s", voucherID, deviceID)
}

func sessionVoucherKey(voucherID string) string {
	return fmt.Sprintf("hotspotd:sessions:voucher:%s", voucherID)
}

func (s *deviceSessionStore) Get(ctx context.Context, voucherID, deviceID string) (*storage.DeviceSession, error) {
	data, err := s.client.HGetAll(ctx, sessionKey(voucherID, deviceID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseDeviceSession(data)
}

func (s *deviceSessionStore) ListByVoucher(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	deviceIDs, err := s.client.SMembers(ctx, sessionVoucherKey(voucherID)).Result()
	if err != nil {
		return nil, err
	}
	return s.batchGet(ctx, voucherID, deviceIDs, false)
}

func (s *deviceSessionStore) ListConnected(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	deviceIDs, err := s.client.SMembers(ctx, sessionVoucherKey(voucherID)).Result()
	if err != nil {
		return nil, err
	}
	return s.batchGet(ctx, voucherID, deviceIDs, true)
}

func (s *deviceSessionStore) batchGet(ctx context.Context, voucherID string, deviceIDs []string, connectedOnly bool) ([]storage.DeviceSession, error) {
	if len(deviceIDs) == 0 {
		return []storage.DeviceSession{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(deviceIDs))
	for i, deviceID := range deviceIDs {
		cmds[i] = pipe.HGetAll(ctx, sessionKey(voucherID, deviceID))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	sessions := make([]storage.DeviceSession, 0, len(deviceIDs))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		session, err := parseDeviceSession(data)
		if err != nil {
			continue
		}
		if connectedOnly && !session.Connected {
			continue
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (s *deviceSessionStore) Upsert(ctx context.Context, session storage.DeviceSession) error {
	connected := "false"
	if session.Connected {
		connected = "true"
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, sessionKey(session.VoucherID, session.DeviceID),
		"id", session.ID,
		"voucher_id", session.VoucherID,
		"device_id", session.DeviceID,
		"is_connected", connected,
		"connected_at", formatNullableTime(session.ConnectedAt),
		"disconnected_at", formatNullableTime(session.DisconnectedAt),
		"ip_address", session.IPAddress,
		"mac_address", session.MACAddress,
		"device_name", session.DeviceName,
	)
	pipe.SAdd(ctx, sessionVoucherKey(session.VoucherID), session.DeviceID)
	_, err := pipe.Exec(ctx)
	return err
}
