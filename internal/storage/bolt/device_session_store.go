package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goodtune/hotspotd/internal/storage"
	"go.etcd.io/bbolt"
)

type deviceSessionStore struct {
	db *bbolt.DB
}

func sessionKey(voucherID, deviceID string) string {
	return fmt.Sprintf("%s/%s", voucherID, deviceID)
}

func (s *deviceSessionStore) Get(ctx context.Context, voucherID, deviceID string) (*storage.DeviceSession, error) {
	return getBucketValue[storage.DeviceSession](ctx, s.db, bucketSessions, sessionKey(voucherID, deviceID))
}

func (s *deviceSessionStore) ListByVoucher(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	sessions := make([]storage.DeviceSession, 0)
	prefix := []byte(voucherID + "/")
	return sessions, s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var session storage.DeviceSession
			if err := unmarshal(v, &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
}

func (s *deviceSessionStore) ListConnected(ctx context.Context, voucherID string) ([]storage.DeviceSession, error) {
	all, err := s.ListByVoucher(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	sessions := make([]storage.DeviceSession, 0)
	for _, session := range all {
		if session.Connected {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (s *deviceSessionStore) Upsert(ctx context.Context, session storage.DeviceSession) error {
	return putBucketValue(ctx, s.db, bucketSessions, sessionKey(session.VoucherID, session.DeviceID), session)
}
