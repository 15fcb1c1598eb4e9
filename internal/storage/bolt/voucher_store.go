package bolt

import (
	"context"

	"github.com/goodtune/hotspotd/internal/storage"
	"go.etcd.io/bbolt"
)

type voucherStore struct {
	db *bbolt.DB
}

func (s *voucherStore) Get(ctx context.Context, id string) (*storage.Voucher, error) {
	return getBucketValue[storage.Voucher](ctx, s.db, bucketVouchers, id)
}

func (s *voucherStore) GetByCode(ctx context.Context, code string) (*storage.Voucher, error) {
	var voucher *storage.Voucher
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		codes := tx.Bucket([]byte(bucketVoucherCodes))
		if codes == nil {
			return storage.ErrNotFound
		}
		id := codes.Get([]byte(code))
		if id == nil {
			return storage.ErrNotFound
		}
		vouchers := tx.Bucket([]byte(bucketVouchers))
		if vouchers == nil {
			return storage.ErrNotFound
		}
		value := vouchers.Get(id)
		if value == nil {
			return storage.ErrNotFound
		}
		var result storage.Voucher
		if err := unmarshal(value, &result); err != nil {
			return err
		}
		voucher = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *voucherStore) ListByOwner(ctx context.Context, ownerID string) ([]storage.Voucher, error) {
	all, err := listBucket[storage.Voucher](ctx, s.db, bucketVouchers)
	if err != nil {
		return nil, err
	}
	vouchers := make([]storage.Voucher, 0)
	for _, v := range all {
		if v.OwnerID == ownerID {
			vouchers = append(vouchers, v)
		}
	}
	return vouchers, nil
}

func (s *voucherStore) ListActive(ctx context.Context) ([]storage.Voucher, error) {
	all, err := listBucket[storage.Voucher](ctx, s.db, bucketVouchers)
	if err != nil {
		return nil, err
	}
	vouchers := make([]storage.Voucher, 0)
	for _, v := range all {
		if v.Status == storage.StatusActive {
			vouchers = append(vouchers, v)
		}
	}
	return vouchers, nil
}

// Upsert writes the voucher and its code index entry in one transaction.
func (s *voucherStore) Upsert(ctx context.Context, voucher storage.Voucher) error {
	data, err := marshal(voucher)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		vouchers := tx.Bucket([]byte(bucketVouchers))
		if vouchers == nil {
			return storage.ErrNotFound
		}
		if err := vouchers.Put([]byte(voucher.ID), data); err != nil {
			return err
		}
		codes := tx.Bucket([]byte(bucketVoucherCodes))
		if codes == nil {
			return storage.ErrNotFound
		}
		return codes.Put([]byte(voucher.Code), []byte(voucher.ID))
	})
}

func (s *voucherStore) CodeExists(ctx context.Context, code string) (bool, error) {
	exists := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		codes := tx.Bucket([]byte(bucketVoucherCodes))
		if codes == nil {
			return nil
		}
		exists = codes.Get([]byte(code)) != nil
		return nil
	})
	return exists, err
}
