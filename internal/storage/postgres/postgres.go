package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/goodtune/hotspotd/internal/config"
	"github.com/goodtune/hotspotd/internal/storage"
)

// Store implements the storage.Store interface using PostgreSQL
type Store struct {
	db           *sqlx.DB
	voucherStore *voucherStore
	sessionStore *deviceSessionStore
	planStore    *planStore
	walletStore  *walletStore
}

const schema = `
CREATE TABLE IF NOT EXISTS service_plans (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION NOT NULL,
	duration_hours INTEGER NOT NULL,
	max_devices INTEGER NOT NULL,
	bandwidth_limit_mbps INTEGER NOT NULL DEFAULT 0,
	data_limit_mb INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS vouchers (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	owner_id TEXT NOT NULL,
	plan_id TEXT NOT NULL,
	status TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT false,
	used_time BIGINT NOT NULL DEFAULT 0,
	activation_time TIMESTAMPTZ,
	active_devices INTEGER NOT NULL DEFAULT 0,
	allowed_devices INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vouchers_owner ON vouchers (owner_id);
CREATE INDEX IF NOT EXISTS idx_vouchers_status ON vouchers (status);

CREATE TABLE IF NOT EXISTS device_sessions (
	id TEXT NOT NULL,
	voucher_id TEXT NOT NULL,
	device_id TEXT NOT NULL,
	is_connected BOOLEAN NOT NULL DEFAULT false,
	connected_at TIMESTAMPTZ,
	disconnected_at TIMESTAMPTZ,
	ip_address TEXT NOT NULL DEFAULT '',
	mac_address TEXT NOT NULL DEFAULT '',
	device_name TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (voucher_id, device_id)
);

CREATE TABLE IF NOT EXISTS wallets (
	owner_id TEXT PRIMARY KEY,
	balance DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	voucher_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions (owner_id, created_at);
`

// Open connects to PostgreSQL and ensures the schema exists
func Open(cfg config.PostgresConfig) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxLifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(maxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{
		db:           db,
		voucherStore: &voucherStore{db: db},
		sessionStore: &deviceSessionStore{db: db},
		planStore:    &planStore{db: db},
		walletStore:  &walletStore{db: db},
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Vouchers returns the VoucherStore implementation
func (s *Store) Vouchers() storage.VoucherStore {
	return s.voucherStore
}

// DeviceSessions returns the DeviceSessionStore implementation
func (s *Store) DeviceSessions() storage.DeviceSessionStore {
	return s.sessionStore
}

// Plans returns the PlanStore implementation
func (s *Store) Plans() storage.PlanStore {
	return s.planStore
}

// Wallets returns the WalletStore implementation
func (s *Store) Wallets() storage.WalletStore {
	return s.walletStore
}
