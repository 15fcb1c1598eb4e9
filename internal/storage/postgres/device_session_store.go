package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/goodtune/hotspotd/internal/storage"
)

type deviceSessionStore struct {
	db *sqlx.DB
}

func (s *deviceSessionStore) Get(ctx context.Context, voucherID, deviceID string) (*storage.DeviceSession, error) {
	var session storage.DeviceSession
	query := `SELECT * FROM device_sessions WHERE voucher_id = $1 AND device_id = $2`
	err := s.db.GetContext(ctx, &session, query, voucherID, deviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *deviceSessionStore) ListByVoucher(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	sessions := []storage.DeviceSession{}
	query := `SELECT * FROM device_sessions WHERE voucher_id = $1 ORDER BY device_id`
	err := s.db.SelectContext(ctx, &sessions, query, voucherID)
	return sessions, err
}

func (s *deviceSessionStore) ListConnected(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	sessions := []storage.DeviceSession{}
	query := `SELECT * FROM device_sessions WHERE voucher_id = $1 AND is_connected = true ORDER BY device_id`
	err := s.db.SelectContext(ctx, &sessions, query, voucherID)
	return sessions, err
}

func (s *deviceSessionStore) Upsert(ctx context.Context, session storage.DeviceSession) error {
	query := `
		INSERT INTO device_sessions (id, voucher_id, device_id, is_connected,
			connected_at, disconnected_at, ip_address, mac_address, device_name)
		VALUES (:id, :voucher_id, :device_id, :is_connected,
			:connected_at, :disconnected_at, :ip_address, :mac_address, :device_name)
		ON CONFLICT (voucher_id, device_id) DO UPDATE SET
			is_connected = EXCLUDED.is_connected,
			connected_at = EXCLUDED.connected_at,
			disconnected_at = EXCLUDED.disconnected_at,
			ip_address = EXCLUDED.ip_address,
			mac_address = EXCLUDED.mac_address,
			device_name = EXCLUDED.device_name
	`
	_, err := s.db.NamedExecContext(ctx, query, session)
	return err
}
