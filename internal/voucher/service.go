package voucher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/metrics"
	"github.com/goodtune/hotspotd/internal/storage"
)

const (
	// codeLength is the length of generated voucher codes.
	codeLength = 8

	// codeAlphabet excludes 0/O and 1/I to keep codes readable on
	// printed vouchers.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	planCacheSize = 128
)

// DeviceInfo carries optional network metadata captured at admission.
type DeviceInfo struct {
	IPAddress  string `json:"ip_address,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// Service owns the voucher state machine and the device admission
// registry. Every transition runs under a per-voucher mutex so the
// read-compute-write cycle on a voucher row is atomic end to end.
type Service struct {
	store     storage.Store
	clock     Clock
	logger    zerolog.Logger
	planCache *lru.Cache[string, storage.ServicePlan]

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a voucher service.
func NewService(store storage.Store, clock Clock, logger zerolog.Logger) *Service {
	cache, _ := lru.New[string, storage.ServicePlan](planCacheSize)
	return &Service{
		store:     store,
		clock:     clock,
		logger:    logger.With().Str("component", "voucher").Logger(),
		planCache: cache,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockVoucher acquires the per-voucher mutex and returns its unlock func.
func (s *Service) lockVoucher(id string) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// plan returns the voucher's service plan, via the LRU cache.
func (s *Service) plan(ctx context.Context, planID string) (*storage.ServicePlan, error) {
	if cached, ok := s.planCache.Get(planID); ok {
		return &cached, nil
	}

	plan, err := s.store.Plans().Get(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}

	s.planCache.Add(planID, *plan)
	return plan, nil
}

// InvalidatePlan drops a plan from the cache after a catalog update.
func (s *Service) InvalidatePlan(planID string) {
	s.planCache.Remove(planID)
}

// Create issues a new voucher in unused status with a unique code.
// allowedDevices overrides the plan's device cap when positive.
func (s *Service) Create(ctx context.Context, ownerID, planID string, allowedDevices int) (*storage.Voucher, error) {
	plan, err := s.plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	if allowedDevices <= 0 {
		allowedDevices = plan.MaxDevices
	}

	now := s.clock.Now()
	voucher := storage.Voucher{
		ID:             uuid.NewString(),
		Code:           code,
		OwnerID:        ownerID,
		PlanID:         planID,
		Status:         storage.StatusUnused,
		IsActive:       false,
		UsedTime:       0,
		ActiveDevices:  0,
		AllowedDevices: allowedDevices,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Vouchers().Upsert(ctx, voucher); err != nil {
		return nil, fmt.Errorf("save voucher: %w", err)
	}

	metrics.VouchersCreated.Inc()
	s.logger.Info().
		Str("voucher_id", voucher.ID).
		Str("code", voucher.Code).
		Str("plan_id", planID).
		Int("allowed_devices", allowedDevices).
		Msg("Voucher created")

	return &voucher, nil
}

// generateUniqueCode generates a random code and retries on collision.
func (s *Service) generateUniqueCode(ctx context.Context) (string, error) {
	for {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.store.Vouchers().CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check voucher code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random voucher code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// Get loads a voucher by id.
func (s *Service) Get(ctx context.Context, id string) (*storage.Voucher, error) {
	return s.store.Vouchers().Get(ctx, id)
}

// GetByCode loads a voucher by its public code.
func (s *Service) GetByCode(ctx context.Context, code string) (*storage.Voucher, error) {
	return s.store.Vouchers().GetByCode(ctx, code)
}

// ListByOwner returns all vouchers belonging to an owner.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]storage.Voucher, error) {
	return s.store.Vouchers().ListByOwner(ctx, ownerID)
}

// Activate transitions a voucher to active. Legal only from unused or
// paused; returns false without mutation otherwise.
func (s *Service) Activate(ctx context.Context, id string) (bool, error) {
	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}

	if !s.activateLocked(v) {
		return false, nil
	}

	if err := s.save(ctx, v); err != nil {
		return false, err
	}

	metrics.VouchersActivated.Inc()
	s.logger.Info().
		Str("voucher_id", v.ID).
		Str("code", v.Code).
		Msg("Voucher activated")

	return true, nil
}

func (s *Service) activateLocked(v *storage.Voucher) bool {
	if v.Status != storage.StatusUnused && v.Status != storage.StatusPaused {
		return false
	}

	now := s.clock.Now()
	v.ActivationTime = &now
	v.Status = storage.StatusActive
	v.IsActive = true
	return true
}

// Pause freezes an active voucher, folding the elapsed minutes since
// activation into used time. Returns false if not currently active.
func (s *Service) Pause(ctx context.Context, id string) (bool, error) {
	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}

	if !s.pauseLocked(v) {
		return false, nil
	}

	if err := s.save(ctx, v); err != nil {
		return false, err
	}

	s.logger.Info().
		Str("voucher_id", v.ID).
		Str("code", v.Code).
		Int64("used_time", v.UsedTime).
		Msg("Voucher paused")

	return true, nil
}

func (s *Service) pauseLocked(v *storage.Voucher) bool {
	if v.Status != storage.StatusActive {
		return false
	}

	s.foldElapsed(v)
	v.Status = storage.StatusPaused
	v.IsActive = false
	return true
}

// foldElapsed adds the minutes since activation to used time. Used time
// is monotonically non-decreasing; minutesBetween never goes negative.
func (s *Service) foldElapsed(v *storage.Voucher) {
	if v.ActivationTime == nil {
		return
	}
	elapsed := minutesBetween(*v.ActivationTime, s.clock.Now())
	v.UsedTime += elapsed
	if elapsed > 0 {
		metrics.UsageMinutesConsumed.Add(float64(elapsed))
	}
}

// Expire finalizes a voucher. Legal from any status; expired is terminal
// and a repeated call is a safe no-op that re-saves the same state.
func (s *Service) Expire(ctx context.Context, id string) (bool, error) {
	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}

	s.expireLocked(v)

	if err := s.save(ctx, v); err != nil {
		return false, err
	}

	return true, nil
}

func (s *Service) expireLocked(v *storage.Voucher) {
	if v.Status == storage.StatusExpired {
		return
	}

	if v.Status == storage.StatusActive {
		s.foldElapsed(v)
	}
	v.Status = storage.StatusExpired
	v.IsActive = false

	metrics.VouchersExpired.Inc()
	s.logger.Info().
		Str("voucher_id", v.ID).
		Str("code", v.Code).
		Int64("used_time", v.UsedTime).
		Msg("Voucher expired")
}

// CheckExpired is the pure validity probe: it reports whether the voucher
// would expire as of now without touching storage.
func (s *Service) CheckExpired(ctx context.Context, id string) (bool, error) {
	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}
	plan, err := s.plan(ctx, v.PlanID)
	if err != nil {
		return false, err
	}
	return CheckExpired(v, plan, s.clock.Now()), nil
}

// ExpireIfNeeded expires the voucher when it is over quota, and reports
// whether the voucher is expired after the call.
func (s *Service) ExpireIfNeeded(ctx context.Context, id string) (bool, error) {
	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}

	valid, err := s.validLocked(ctx, v)
	if err != nil {
		return false, err
	}
	return !valid && v.Status == storage.StatusExpired, nil
}

// IsValid reports whether the voucher can be used for connection. An
// active voucher that is over quota is expired as a side effect before
// returning false, so every access path re-confirms state from first
// principles.
func (s *Service) IsValid(ctx context.Context, id string) (bool, error) {
	unlock := s.lockVoucher(id)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load voucher: %w", err)
	}

	return s.validLocked(ctx, v)
}

// validLocked evaluates validity and performs lazy expiry. The caller
// must hold the voucher lock. When lazy expiry fires, the voucher is
// saved before returning.
func (s *Service) validLocked(ctx context.Context, v *storage.Voucher) (bool, error) {
	switch v.Status {
	case storage.StatusUnused, storage.StatusPaused:
		return true, nil
	case storage.StatusExpired:
		return false, nil
	}

	plan, err := s.plan(ctx, v.PlanID)
	if err != nil {
		return false, err
	}

	if OverQuota(v.Status, v.UsedTime, v.ActivationTime, plan.DurationMinutes(), s.clock.Now()) {
		s.expireLocked(v)
		if err := s.save(ctx, v); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// RemainingMinutes returns the minutes of quota left on the voucher.
func (s *Service) RemainingMinutes(ctx context.Context, id string) (int64, error) {
	v, err := s.store.Vouchers().Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load voucher: %w", err)
	}
	plan, err := s.plan(ctx, v.PlanID)
	if err != nil {
		return 0, err
	}
	return RemainingMinutes(v.Status, v.UsedTime, v.ActivationTime, plan.DurationMinutes(), s.clock.Now()), nil
}

// AddDevice admits a device to a voucher, reusing an existing session on
// reconnect. It does not activate the voucher; callers pair it with
// Activate, or use ConnectAndActivate at the boundary.
func (s *Service) AddDevice(ctx context.Context, voucherID, deviceID string, info DeviceInfo) (*storage.DeviceSession, error) {
	unlock := s.lockVoucher(voucherID)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("load voucher: %w", err)
	}

	return s.addDeviceLocked(ctx, v, deviceID, info)
}

func (s *Service) addDeviceLocked(ctx context.Context, v *storage.Voucher, deviceID string, info DeviceInfo) (*storage.DeviceSession, error) {
	valid, err := s.validLocked(ctx, v)
	if err != nil {
		return nil, err
	}
	if !valid {
		metrics.DeviceAdmissions.WithLabelValues("not_usable").Inc()
		return nil, ErrVoucherNotUsable
	}

	if v.ActiveDevices >= v.AllowedDevices {
		metrics.DeviceAdmissions.WithLabelValues("cap_exceeded").Inc()
		return nil, ErrDeviceCapExceeded
	}

	now := s.clock.Now()

	session, err := s.store.DeviceSessions().Get(ctx, v.ID, deviceID)
	switch {
	case err == nil:
		if session.Connected {
			// Already admitted; nothing to change.
			return session, nil
		}
		session.Connected = true
		session.ConnectedAt = &now
		session.DisconnectedAt = nil
		applyDeviceInfo(session, info)
	case errors.Is(err, storage.ErrNotFound):
		session = &storage.DeviceSession{
			ID:          uuid.NewString(),
			VoucherID:   v.ID,
			DeviceID:    deviceID,
			Connected:   true,
			ConnectedAt: &now,
		}
		applyDeviceInfo(session, info)
	default:
		return nil, fmt.Errorf("load device session: %w", err)
	}

	if err := s.store.DeviceSessions().Upsert(ctx, *session); err != nil {
		return nil, fmt.Errorf("save device session: %w", err)
	}

	// Counter update stays in the same critical section as the session
	// write so the invariant active_devices == connected sessions holds.
	v.ActiveDevices++
	if err := s.save(ctx, v); err != nil {
		return nil, err
	}

	metrics.DeviceAdmissions.WithLabelValues("admitted").Inc()
	metrics.DevicesConnected.Inc()
	s.logger.Info().
		Str("voucher_id", v.ID).
		Str("device_id", deviceID).
		Int("active_devices", v.ActiveDevices).
		Msg("Device admitted")

	return session, nil
}

func applyDeviceInfo(session *storage.DeviceSession, info DeviceInfo) {
	if info.IPAddress != "" {
		session.IPAddress = info.IPAddress
	}
	if info.MACAddress != "" {
		session.MACAddress = info.MACAddress
	}
	if info.DeviceName != "" {
		session.DeviceName = info.DeviceName
	}
}

// RemoveDevice disconnects a device from a voucher. When the last device
// disconnects from an active voucher the voucher is paused, so no quota
// accrues while nothing is connected.
func (s *Service) RemoveDevice(ctx context.Context, voucherID, deviceID string) error {
	unlock := s.lockVoucher(voucherID)
	defer unlock()

	v, err := s.store.Vouchers().Get(ctx, voucherID)
	if err != nil {
		return fmt.Errorf("load voucher: %w", err)
	}

	session, err := s.store.DeviceSessions().Get(ctx, v.ID, deviceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrDeviceNotConnected
		}
		return fmt.Errorf("load device session: %w", err)
	}
	// Never decrement on behalf of a session that belongs to another
	// voucher.
	if session.VoucherID != v.ID || !session.Connected {
		return ErrDeviceNotConnected
	}

	now := s.clock.Now()
	session.Connected = false
	session.DisconnectedAt = &now
	if err := s.store.DeviceSessions().Upsert(ctx, *session); err != nil {
		return fmt.Errorf("save device session: %w", err)
	}

	if v.ActiveDevices > 0 {
		v.ActiveDevices--
	}

	if v.ActiveDevices == 0 && v.Status == storage.StatusActive {
		s.pauseLocked(v)
	}

	if err := s.save(ctx, v); err != nil {
		return err
	}

	metrics.DevicesConnected.Dec()
	s.logger.Info().
		Str("voucher_id", v.ID).
		Str("device_id", deviceID).
		Int("active_devices", v.ActiveDevices).
		Str("status", string(v.Status)).
		Msg("Device disconnected")

	return nil
}

// ConnectAndActivate is the boundary operation the captive portal calls:
// it admits the device and activates the voucher in one step, so a
// successful admission can never be left without time accounting.
func (s *Service) ConnectAndActivate(ctx context.Context, code, deviceID string, info DeviceInfo) (*storage.Voucher, *storage.DeviceSession, error) {
	v, err := s.store.Vouchers().GetByCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("load voucher by code: %w", err)
	}

	unlock := s.lockVoucher(v.ID)
	defer unlock()

	// Reload under the lock; the row may have moved since the code lookup.
	v, err = s.store.Vouchers().Get(ctx, v.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load voucher: %w", err)
	}

	session, err := s.addDeviceLocked(ctx, v, deviceID, info)
	if err != nil {
		return nil, nil, err
	}

	if s.activateLocked(v) {
		if err := s.save(ctx, v); err != nil {
			return nil, nil, err
		}
		metrics.VouchersActivated.Inc()
		s.logger.Info().
			Str("voucher_id", v.ID).
			Str("code", v.Code).
			Msg("Voucher activated")
	}

	return v, session, nil
}

// Status returns the voucher and the named device's session for the
// captive portal status page. Validity is re-evaluated, with lazy expiry.
func (s *Service) Status(ctx context.Context, code, deviceID string) (*storage.Voucher, *storage.DeviceSession, bool, error) {
	v, err := s.store.Vouchers().GetByCode(ctx, code)
	if err != nil {
		return nil, nil, false, fmt.Errorf("load voucher by code: %w", err)
	}

	valid, err := s.IsValid(ctx, v.ID)
	if err != nil {
		return nil, nil, false, err
	}

	// Re-read after the validity check; lazy expiry may have fired.
	v, err = s.store.Vouchers().Get(ctx, v.ID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("load voucher: %w", err)
	}

	session, err := s.store.DeviceSessions().Get(ctx, v.ID, deviceID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, false, fmt.Errorf("load device session: %w", err)
	}

	return v, session, valid, nil
}

func (s *Service) save(ctx context.Context, v *storage.Voucher) error {
	v.UpdatedAt = s.clock.Now()
	if err := s.store.Vouchers().Upsert(ctx, *v); err != nil {
		return fmt.Errorf("save voucher: %w", err)
	}
	return nil
}
