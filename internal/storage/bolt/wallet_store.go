package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goodtune/hotspotd/internal/storage"
	"go.etcd.io/bbolt"
)

type walletStore struct {
	db *bbolt.DB
}

func (s *walletStore) Get(ctx context.Context, ownerID string) (*storage.Wallet, error) {
	return getBucketValue[storage.Wallet](ctx, s.db, bucketWallets, ownerID)
}

func (s *walletStore) Upsert(ctx context.Context, wallet storage.Wallet) error {
	return putBucketValue(ctx, s.db, bucketWallets, wallet.OwnerID, wallet)
}

func transactionKey(tx storage.Transaction) string {
	return fmt.Sprintf("%s/%020d-%s", tx.OwnerID, tx.CreatedAt.UnixNano(), tx.ID)
}

func (s *walletStore) AddTransaction(ctx context.Context, tx storage.Transaction) error {
	return putBucketValue(ctx, s.db, bucketTransactions, transactionKey(tx), tx)
}

func (s *walletStore) UpdateTransaction(ctx context.Context, tx storage.Transaction) error {
	return putBucketValue(ctx, s.db, bucketTransactions, transactionKey(tx), tx)
}

func (s *walletStore) ListTransactions(ctx context.Context, ownerID string) ([]storage.Transaction, error) {
	transactions := make([]storage.Transaction, 0)
	prefix := []byte(ownerID + "/")
	return transactions, s.db.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket([]byte(bucketTransactions))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var tx storage.Transaction
			if err := unmarshal(v, &tx); err != nil {
				return err
			}
			transactions = append(transactions, tx)
		}
		return nil
	})
}
