package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/goodtune/hotspotd/internal/storage"
)

type planStore struct {
	db *sqlx.DB
}

func (s *planStore) Get(ctx context.Context, id string) (*storage.ServicePlan, error) {
	var plan storage.ServicePlan
	query := `SELECT * FROM service_plans WHERE id = $1`
	err := s.db.GetContext(ctx, &plan, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (s *planStore) List(ctx context.Context) ([]storage.ServicePlan, error) {
	plans := []storage.ServicePlan{}
	query := `SELECT * FROM service_plans ORDER BY price`
	err := s.db.SelectContext(ctx, &plans, query)
	return plans, err
}

func (s *planStore) ListActive(ctx context.Context) ([]storage.ServicePlan, error) {
	plans := []storage.ServicePlan{}
	query := `SELECT * FROM service_plans WHERE is_active = true ORDER BY price`
	err := s.db.SelectContext(ctx, &plans, query)
	return plans, err
}

func (s *planStore) Upsert(ctx context.Context, plan storage.ServicePlan) error {
	query := `
		INSERT INTO service_plans (id, name, description, price, duration_hours,
			max_devices, bandwidth_limit_mbps, data_limit_mb, is_active)
		VALUES (:id, :name, :description, :price, :duration_hours,
			:max_devices, :bandwidth_limit_mbps, :data_limit_mb, :is_active)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			duration_hours = EXCLUDED.duration_hours,
			max_devices = EXCLUDED.max_devices,
			bandwidth_limit_mbps = EXCLUDED.bandwidth_limit_mbps,
			data_limit_mb = EXCLUDED.data_limit_mb,
			is_active = EXCLUDED.is_active
	`
	_, err := s.db.NamedExecContext(ctx, query, plan)
	return err
}

func (s *planStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM service_plans WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
