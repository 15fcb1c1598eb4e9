package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/hotspotd/internal/storage"
)

type voucherStore struct {
	client *redis.Client
}

func voucherKey(id string) string {
	return fmt.Sprintf("hotspotd:voucher:%s", id)
}

func voucherCodeKey(code string) string {
	return fmt.Sprintf("hotspotd:voucher:code:%s", code)
}

func voucherOwnerKey(ownerID string) string {
	return fmt.Sprintf("hotspotd:vouchers:owner:%s", ownerID)
}

const voucherActiveSet = "hotspotd:vouchers:active"

func (s *voucherStore) Get(ctx context.Context, id string) (*storage.Voucher, error) {
	data, err := s.client.HGetAll(ctx, voucherKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseVoucher(data)
}

func (s *voucherStore) GetByCode(ctx context.Context, code string) (*storage.Voucher, error) {
	id, err := s.client.Get(ctx, voucherCodeKey(code)).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *voucherStore) ListByOwner(ctx context.Context, ownerID string) ([]storage.Voucher, error) {
	ids, err := s.client.SMembers(ctx, voucherOwnerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	return s.batchGet(ctx, ids)
}

func (s *voucherStore) ListActive(ctx context.Context) ([]storage.Voucher, error) {
	ids, err := s.client.SMembers(ctx, voucherActiveSet).Result()
	if err != nil {
		return nil, err
	}
	return s.batchGet(ctx, ids)
}

func (s *voucherStore) batchGet(ctx context.Context, ids []string) ([]storage.Voucher, error) {
	if len(ids) == 0 {
		return []storage.Voucher{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, voucherKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	vouchers := make([]storage.Voucher, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		voucher, err := parseVoucher(data)
		if err != nil {
			continue
		}
		vouchers = append(vouchers, *voucher)
	}
	return vouchers, nil
}

// Upsert writes the voucher hash and its indexes atomically via a Lua
// script, so a concurrent sweep listing the active set never observes a
// voucher whose hash disagrees with its set membership.
func (s *voucherStore) Upsert(ctx context.Context, voucher storage.Voucher) error {
	script := redis.NewScript(upsertVoucherScript)

	keys := []string{
		voucherKey(voucher.ID),
		voucherCodeKey(voucher.Code),
		voucherOwnerKey(voucher.OwnerID),
		voucherActiveSet,
	}

	active := "0"
	if voucher.Status == storage.StatusActive {
		active = "1"
	}
	isActive := "0"
	if voucher.IsActive {
		isActive = "1"
	}

	args := []interface{}{
		"id", voucher.ID,
		"code", voucher.Code,
		"owner_id", voucher.OwnerID,
		"plan_id", voucher.PlanID,
		"status", string(voucher.Status),
		"is_active", isActive,
		"used_time", voucher.UsedTime,
		"activation_time", formatNullableTime(voucher.ActivationTime),
		"active_devices", voucher.ActiveDevices,
		"allowed_devices", voucher.AllowedDevices,
		"created_at", voucher.CreatedAt.Format(timeLayout),
		"updated_at", voucher.UpdatedAt.Format(timeLayout),
		voucher.ID,
		active,
	}

	return script.Run(ctx, s.client, keys, args...).Err()
}

func (s *voucherStore) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, voucherCodeKey(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
