package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/hotspotd/internal/storage"
)

type planStore struct {
	client *redis.Client
}

func planKey(id string) string {
	return fmt.Sprintf("hotspotd:plan:%s", id)
}

const planSet = "hotspotd:plans"

func (s *planStore) Get(ctx context.Context, id string) (*storage.ServicePlan, error) {
	data, err := s.client.HGetAll(ctx, planKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}
	return parseServicePlan(data)
}

func (s *planStore) List(ctx context.Context) ([]storage.ServicePlan, error) {
	return s.list(ctx, false)
}

func (s *planStore) ListActive(ctx context.Context) ([]storage.ServicePlan, error) {
	return s.list(ctx, true)
}

func (s *planStore) list(ctx context.Context, activeOnly bool) ([]storage.ServicePlan, error) {
	ids, err := s.client.SMembers(ctx, planSet).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []storage.ServicePlan{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, planKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	plans := make([]storage.ServicePlan, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		plan, err := parseServicePlan(data)
		if err != nil {
			continue
		}
		if activeOnly && !plan.Active {
			continue
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func (s *planStore) Upsert(ctx context.Context, plan storage.ServicePlan) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, planKey(plan.ID),
		"id", plan.ID,
		"name", plan.Name,
		"description", plan.Description,
		"price", strconv.FormatFloat(plan.Price, 'f', -1, 64),
		"duration_hours", plan.DurationHours,
		"max_devices", plan.MaxDevices,
		"bandwidth_limit_mbps", plan.BandwidthLimitMbps,
		"data_limit_mb", plan.DataLimitMB,
		"is_active", strconv.FormatBool(plan.Active),
	)
	pipe.SAdd(ctx, planSet, plan.ID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *planStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, planKey(id))
	pipe.SRem(ctx, planSet, id)
	_, err := pipe.Exec(ctx)
	return err
}
