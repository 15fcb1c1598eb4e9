package bolt

import (
	"context"

	"github.com/goodtune/hotspotd/internal/storage"
	"go.etcd.io/bbolt"
)

type planStore struct {
	db *bbolt.DB
}

func (s *planStore) Get(ctx context.Context, id string) (*storage.ServicePlan, error) {
	return getBucketValue[storage.ServicePlan](ctx, s.db, bucketPlans, id)
}

func (s *planStore) List(ctx context.Context) ([]storage.ServicePlan, error) {
	return listBucket[storage.ServicePlan](ctx, s.db, bucketPlans)
}

func (s *planStore) ListActive(ctx context.Context) ([]storage.ServicePlan, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	plans := make([]storage.ServicePlan, 0)
	for _, plan := range all {
		if plan.Active {
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (s *planStore) Upsert(ctx context.Context, plan storage.ServicePlan) error {
	return putBucketValue(ctx, s.db, bucketPlans, plan.ID, plan)
}

func (s *planStore) Delete(ctx context.Context, id string) error {
	return deleteBucketValue(ctx, s.db, bucketPlans, id)
}
