package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/hotspotd/internal/storage"
)

type walletStore struct {
	client *redis.Client
}

func walletKey(ownerID string) string {
	return fmt.Sprintf("hotspotd:wallet:%s", ownerID)
}

func transactionKey(id string) string {
	return fmt.Sprintf("hotspotd:transaction:%s", id)
}

func transactionOwnerKey(ownerID string) string {
	return fmt.Sprintf("hotspotd:transactions:owner:%s", ownerID)
}

func (s *walletStore) Get(ctx context.Context, ownerID string) (*storage.Wallet, error) {
	data, err := s.client.HGetAll(ctx, walletKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	balance, err := strconv.ParseFloat(data["balance"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}

	return &storage.Wallet{
		OwnerID: data["owner_id"],
		Balance: balance,
	}, nil
}

func (s *walletStore) Upsert(ctx context.Context, wallet storage.Wallet) error {
	return s.client.HSet(ctx, walletKey(wallet.OwnerID),
		"owner_id", wallet.OwnerID,
		"balance", strconv.FormatFloat(wallet.Balance, 'f', -1, 64),
	).Err()
}

func (s *walletStore) AddTransaction(ctx context.Context, tx storage.Transaction) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, transactionKey(tx.ID), transactionFields(tx)...)
	pipe.ZAdd(ctx, transactionOwnerKey(tx.OwnerID), redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *walletStore) UpdateTransaction(ctx context.Context, tx storage.Transaction) error {
	exists, err := s.client.Exists(ctx, transactionKey(tx.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return storage.ErrNotFound
	}
	return s.client.HSet(ctx, transactionKey(tx.ID), transactionFields(tx)...).Err()
}

func (s *walletStore) ListTransactions(ctx context.Context, ownerID string) ([]storage.Transaction, error) {
	ids, err := s.client.ZRange(ctx, transactionOwnerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []storage.Transaction{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, transactionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	transactions := make([]storage.Transaction, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		tx, err := parseTransaction(data)
		if err != nil {
			continue
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

func transactionFields(tx storage.Transaction) []interface{} {
	return []interface{}{
		"id", tx.ID,
		"owner_id", tx.OwnerID,
		"amount", strconv.FormatFloat(tx.Amount, 'f', -1, 64),
		"type", tx.Type,
		"description", tx.Description,
		"status", tx.Status,
		"voucher_id", tx.VoucherID,
		"created_at", tx.CreatedAt.Format(timeLayout),
	}
}
