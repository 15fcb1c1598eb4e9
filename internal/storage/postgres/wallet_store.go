package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/goodtune/hotspotd/internal/storage"
)

type walletStore struct {
	db *sqlx.DB
}

func (s *walletStore) Get(ctx context.Context, ownerID string) (*storage.Wallet, error) {
	var wallet storage.Wallet
	query := `SELECT * FROM wallets WHERE owner_id = $1`
	err := s.db.GetContext(ctx, &wallet, query, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (s *walletStore) Upsert(ctx context.Context, wallet storage.Wallet) error {
	query := `
		INSERT INTO wallets (owner_id, balance)
		VALUES (:owner_id, :balance)
		ON CONFLICT (owner_id) DO UPDATE SET balance = EXCLUDED.balance
	`
	_, err := s.db.NamedExecContext(ctx, query, wallet)
	return err
}

func (s *walletStore) AddTransaction(ctx context.Context, tx storage.Transaction) error {
	query := `
		INSERT INTO transactions (id, owner_id, amount, type, description, status, voucher_id, created_at)
		VALUES (:id, :owner_id, :amount, :type, :description, :status, :voucher_id, :created_at)
	`
	_, err := s.db.NamedExecContext(ctx, query, tx)
	return err
}

func (s *walletStore) UpdateTransaction(ctx context.Context, tx storage.Transaction) error {
	query := `
		UPDATE transactions
		SET status = :status, voucher_id = :voucher_id, description = :description
		WHERE id = :id
	`
	result, err := s.db.NamedExecContext(ctx, query, tx)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *walletStore) ListTransactions(ctx context.Context, ownerID string) ([]storage.Transaction, error) {
	transactions := []storage.Transaction{}
	query := `SELECT * FROM transactions WHERE owner_id = $1 ORDER BY created_at`
	err := s.db.SelectContext(ctx, &transactions, query, ownerID)
	return transactions, err
}
