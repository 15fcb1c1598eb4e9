package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/metrics"
	"github.com/goodtune/hotspotd/internal/storage"
)

// Sweeper periodically reclaims active vouchers that have exhausted
// their quota but that nobody has polled since. Each run is a
// short-lived pass over the active set.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
}

// NewSweeper creates an expiry sweeper.
func NewSweeper(service *Service, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger.With().Str("component", "expiry-sweep").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (sw *Sweeper) Start() {
	go sw.run()
	sw.logger.Info().
		Dur("interval", sw.interval).
		Msg("Expiry sweeper started")
}

// Stop stops the periodic sweep.
func (sw *Sweeper) Stop() {
	close(sw.stopChan)
	sw.logger.Info().Msg("Expiry sweeper stopped")
}

func (sw *Sweeper) run() {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := sw.ReclaimExpiredVouchers(context.Background()); err != nil {
				sw.logger.Error().Err(err).Msg("Sweep run failed")
			}
		case <-sw.stopChan:
			return
		}
	}
}

// ReclaimExpiredVouchers walks every active voucher, force-disconnects
// the devices of any that are over quota, and expires them. It returns
// the number of vouchers reclaimed.
func (sw *Sweeper) ReclaimExpiredVouchers(ctx context.Context) (int, error) {
	metrics.SweepRuns.Inc()

	active, err := sw.service.store.Vouchers().ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active vouchers: %w", err)
	}

	reclaimed := 0
	for _, v := range active {
		if ctx.Err() != nil {
			return reclaimed, ctx.Err()
		}

		expired, err := sw.reclaimOne(ctx, v.ID)
		if err != nil {
			sw.logger.Error().Err(err).
				Str("voucher_id", v.ID).
				Str("code", v.Code).
				Msg("Failed to reclaim voucher")
			continue
		}
		if expired {
			reclaimed++
		}
	}

	if reclaimed > 0 {
		sw.logger.Info().
			Int("checked", len(active)).
			Int("reclaimed", reclaimed).
			Msg("Sweep run complete")
	} else {
		sw.logger.Debug().
			Int("checked", len(active)).
			Msg("Sweep run complete")
	}

	return reclaimed, nil
}

// reclaimOne re-checks one voucher under its lock and, if over quota,
// tears it down: every connected session is flipped to disconnected
// wholesale (not via the per-device path) and the voucher is expired.
func (sw *Sweeper) reclaimOne(ctx context.Context, id string) (bool, error) {
	s := sw.service

	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}
	// A concurrent caller may have transitioned it since the listing.
	if v.Status != storage.StatusActive {
		return false, nil
	}

	plan, err := s.plan(ctx, v.PlanID)
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	if !OverQuota(v.Status, v.UsedTime, v.ActivationTime, plan.DurationMinutes(), now) {
		return false, nil
	}

	sessions, err := s.store.DeviceSessions().ListConnected(ctx, v.ID)
	if err != nil {
		return false, fmt.Errorf("list connected sessions: %w", err)
	}

	for _, session := range sessions {
		session.Connected = false
		session.DisconnectedAt = &now
		if err := s.store.DeviceSessions().Upsert(ctx, session); err != nil {
			return false, fmt.Errorf("disconnect session %s: %w", session.DeviceID, err)
		}
		metrics.DevicesConnected.Dec()
		sw.logger.Info().
			Str("voucher_id", v.ID).
			Str("device_id", session.DeviceID).
			Msg("Force-disconnected device")
	}

	v.ActiveDevices = 0
	s.expireLocked(v)
	if err := s.save(ctx, v); err != nil {
		return false, err
	}

	metrics.SweepReclaimed.Inc()
	return true, nil
}
