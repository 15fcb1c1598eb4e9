package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/goodtune/hotspotd/internal/storage"
)

type voucherStore struct {
	db *sqlx.DB
}

func (s *voucherStore) Get(ctx context.Context, id string) (*storage.Voucher, error) {
	var voucher storage.Voucher
	query := `SELECT * FROM vouchers WHERE id = $1`
	err := s.db.GetContext(ctx, &voucher, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (s *voucherStore) GetByCode(ctx context.Context, code string) (*storage.Voucher, error) {
	var voucher storage.Voucher
	query := `SELECT * FROM vouchers WHERE code = $1`
	err := s.db.GetContext(ctx, &voucher, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (s *voucherStore) ListByOwner(ctx context.Context, ownerID string) ([]storage.Voucher, error) {
	vouchers := []storage.Voucher{}
	query := `SELECT * FROM vouchers WHERE owner_id = $1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &vouchers, query, ownerID)
	return vouchers, err
}

func (s *voucherStore) ListActive(ctx context.Context) ([]storage.Voucher, error) {
	vouchers := []storage.Voucher{}
	query := `SELECT * FROM vouchers WHERE status = $1`
	err := s.db.SelectContext(ctx, &vouchers, query, string(storage.StatusActive))
	return vouchers, err
}

func (s *voucherStore) Upsert(ctx context.Context, voucher storage.Voucher) error {
	query := `
		INSERT INTO vouchers (id, code, owner_id, plan_id, status, is_active, used_time,
			activation_time, active_devices, allowed_devices, created_at, updated_at)
		VALUES (:id, :code, :owner_id, :plan_id, :status, :is_active, :used_time,
			:activation_time, :active_devices, :allowed_devices, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			is_active = EXCLUDED.is_active,
			used_time = EXCLUDED.used_time,
			activation_time = EXCLUDED.activation_time,
			active_devices = EXCLUDED.active_devices,
			allowed_devices = EXCLUDED.allowed_devices,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.NamedExecContext(ctx, query, voucher)
	return err
}

func (s *voucherStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM vouchers WHERE code = $1`
	if err := s.db.GetContext(ctx, &count, query, code); err != nil {
		return false, err
	}
	return count > 0, nil
}
