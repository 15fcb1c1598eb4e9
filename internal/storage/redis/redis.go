package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/hotspotd/internal/config"
	"github.com/goodtune/hotspotd/internal/storage"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	voucherStore *voucherStore
	sessionStore *deviceSessionStore
	planStore    *planStore
	walletStore  *walletStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port (miniredis in tests)
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:       client,
		voucherStore: &voucherStore{client: client},
		sessionStore: &deviceSessionStore{client: client},
		planStore:    &planStore{client: client},
		walletStore:  &walletStore{client: client},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
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
