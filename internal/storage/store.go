package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Vouchers() VoucherStore
	DeviceSessions() DeviceSessionStore
	Plans() PlanStore
	Wallets() WalletStore
}

// VoucherStore manages voucher records. Implementations must provide
// read-your-writes semantics for a single voucher row: once an Upsert
// returns, every subsequent Get observes it.
type VoucherStore interface {
	Get(ctx context.Context, id string) (*Voucher, error)
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Voucher, error)
	ListActive(ctx context.Context) ([]Voucher, error)
	Upsert(ctx context.Context, voucher Voucher) error
	CodeExists(ctx context.Context, code string) (bool, error)
}

// DeviceSessionStore manages device sessions keyed by voucher and device
// identifier. Sessions are reused on reconnect and never deleted by the
// normal connect/disconnect flow.
type DeviceSessionStore interface {
	Get(ctx context.Context, voucherID, deviceID string) (*DeviceSession, error)
	ListByVoucher(ctx context.Context, voucherID string) ([]DeviceSession, error)
	ListConnected(ctx context.Context, voucherID string) ([]DeviceSession, error)
	Upsert(ctx context.Context, session DeviceSession) error
}

// PlanStore manages the service plan catalog.
type PlanStore interface {
	Get(ctx context.Context, id string) (*ServicePlan, error)
	List(ctx context.Context) ([]ServicePlan, error)
	ListActive(ctx context.Context) ([]ServicePlan, error)
	Upsert(ctx context.Context, plan ServicePlan) error
	Delete(ctx context.Context, id string) error
}

// WalletStore manages prepaid balances and their transaction history.
type WalletStore interface {
	Get(ctx context.Context, ownerID string) (*Wallet, error)
	Upsert(ctx context.Context, wallet Wallet) error
	AddTransaction(ctx context.Context, tx Transaction) error
	UpdateTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, ownerID string) ([]Transaction, error)
}
