package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goodtune/hotspotd/internal/config"
	"github.com/goodtune/hotspotd/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := config.RedisConfig{
		Host:         mr.Addr(), // Full address "host:port"
		Port:         0,         // Not used when host contains port
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testVoucher(id, code, ownerID string, status storage.VoucherStatus) storage.Voucher {
	now := time.Now().UTC()
	return storage.Voucher{
		ID:             id,
		Code:           code,
		OwnerID:        ownerID,
		PlanID:         "plan-1",
		Status:         status,
		IsActive:       status == storage.StatusActive,
		UsedTime:       0,
		ActiveDevices:  0,
		AllowedDevices: 2,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestVoucherStore_UpsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	vouchers := store.Vouchers()

	activation := time.Now().UTC().Truncate(time.Second)
	voucher := testVoucher("voucher-1", "ABCD2345", "owner-1", storage.StatusActive)
	voucher.UsedTime = 15
	voucher.ActivationTime = &activation

	if err := vouchers.Upsert(ctx, voucher); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := vouchers.Get(ctx, voucher.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if retrieved.Code != voucher.Code {
		t.Errorf("Expected code %s, got %s", voucher.Code, retrieved.Code)
	}
	if retrieved.Status != storage.StatusActive {
		t.Errorf("Expected status active, got %s", retrieved.Status)
	}
	if retrieved.UsedTime != 15 {
		t.Errorf("Expected used time 15, got %d", retrieved.UsedTime)
	}
	if retrieved.ActivationTime == nil || !retrieved.ActivationTime.Equal(activation) {
		t.Errorf("Expected activation time %v, got %v", activation, retrieved.ActivationTime)
	}
}

func TestVoucherStore_GetByCode(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	vouchers := store.Vouchers()

	voucher := testVoucher("voucher-2", "WXYZ6789", "owner-1", storage.StatusUnused)
	if err := vouchers.Upsert(ctx, voucher); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := vouchers.GetByCode(ctx, "WXYZ6789")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if retrieved.ID != voucher.ID {
		t.Errorf("Expected ID %s, got %s", voucher.ID, retrieved.ID)
	}

	if _, err := vouchers.GetByCode(ctx, "NOPE2345"); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown code, got %v", err)
	}

	exists, err := vouchers.CodeExists(ctx, "WXYZ6789")
	if err != nil {
		t.Fatalf("CodeExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected code to exist")
	}
}

func TestVoucherStore_ActiveSetTracksStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	vouchers := store.Vouchers()

	voucher := testVoucher("voucher-3", "AAAA2345", "owner-1", storage.StatusActive)
	if err := vouchers.Upsert(ctx, voucher); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	active, err := vouchers.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("Expected 1 active voucher, got %d", len(active))
	}

	// Pausing must drop the voucher from the active set
	voucher.Status = storage.StatusPaused
	voucher.IsActive = false
	if err := vouchers.Upsert(ctx, voucher); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	active, err = vouchers.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected 0 active vouchers after pause, got %d", len(active))
	}
}

func TestVoucherStore_ListByOwner(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	vouchers := store.Vouchers()

	for _, v := range []storage.Voucher{
		testVoucher("voucher-4", "BBBB2345", "owner-a", storage.StatusUnused),
		testVoucher("voucher-5", "CCCC2345", "owner-a", storage.StatusActive),
		testVoucher("voucher-6", "DDDD2345", "owner-b", storage.StatusUnused),
	} {
		if err := vouchers.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	owned, err := vouchers.ListByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("Expected 2 vouchers for owner-a, got %d", len(owned))
	}
}

func TestDeviceSessionStore_UpsertAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	sessions := store.DeviceSessions()

	connectedAt := time.Now().UTC()
	session := storage.DeviceSession{
		ID:          "session-1",
		VoucherID:   "voucher-1",
		DeviceID:    "aa:bb:cc:dd:ee:ff",
		Connected:   true,
		ConnectedAt: &connectedAt,
		IPAddress:   "10.0.0.5",
		DeviceName:  "phone",
	}

	if err := sessions.Upsert(ctx, session); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := sessions.Get(ctx, "voucher-1", "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !retrieved.Connected {
		t.Error("Expected session to be connected")
	}
	if retrieved.IPAddress != "10.0.0.5" {
		t.Errorf("Expected IP 10.0.0.5, got %s", retrieved.IPAddress)
	}

	// Disconnect and confirm ListConnected excludes it while ListByVoucher keeps it
	disconnectedAt := connectedAt.Add(10 * time.Minute)
	session.Connected = false
	session.DisconnectedAt = &disconnectedAt
	if err := sessions.Upsert(ctx, session); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	all, err := sessions.ListByVoucher(ctx, "voucher-1")
	if err != nil {
		t.Fatalf("ListByVoucher failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 session, got %d", len(all))
	}

	connected, err := sessions.ListConnected(ctx, "voucher-1")
	if err != nil {
		t.Fatalf("ListConnected failed: %v", err)
	}
	if len(connected) != 0 {
		t.Errorf("Expected 0 connected sessions, got %d", len(connected))
	}
}

func TestDeviceSessionStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.DeviceSessions().Get(ctx, "voucher-x", "device-x")
	if err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPlanStore_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	plans := store.Plans()

	plan := storage.ServicePlan{
		ID:            "plan-1h",
		Name:          "1 Hour",
		Description:   "One hour of access",
		Price:         2.50,
		DurationHours: 1,
		MaxDevices:    2,
		Active:        true,
	}

	if err := plans.Upsert(ctx, plan); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := plans.Get(ctx, "plan-1h")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.Price != 2.50 {
		t.Errorf("Expected price 2.50, got %f", retrieved.Price)
	}
	if retrieved.DurationHours != 1 {
		t.Errorf("Expected duration 1h, got %d", retrieved.DurationHours)
	}

	inactive := plan
	inactive.ID = "plan-old"
	inactive.Active = false
	if err := plans.Upsert(ctx, inactive); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	all, err := plans.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 plans, got %d", len(all))
	}

	active, err := plans.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active plan, got %d", len(active))
	}

	if err := plans.Delete(ctx, "plan-1h"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := plans.Get(ctx, "plan-1h"); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestWalletStore_BalanceAndTransactions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	wallets := store.Wallets()

	if _, err := wallets.Get(ctx, "owner-1"); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound for missing wallet, got %v", err)
	}

	wallet := storage.Wallet{OwnerID: "owner-1", Balance: 20.00}
	if err := wallets.Upsert(ctx, wallet); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	retrieved, err := wallets.Get(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.Balance != 20.00 {
		t.Errorf("Expected balance 20.00, got %f", retrieved.Balance)
	}

	base := time.Now().UTC()
	first := storage.Transaction{
		ID:        "tx-1",
		OwnerID:   "owner-1",
		Amount:    20.00,
		Type:      "funding",
		Status:    storage.TransactionCompleted,
		CreatedAt: base,
	}
	second := storage.Transaction{
		ID:        "tx-2",
		OwnerID:   "owner-1",
		Amount:    2.50,
		Type:      "purchase",
		Status:    storage.TransactionPending,
		CreatedAt: base.Add(time.Second),
	}
	for _, tx := range []storage.Transaction{first, second} {
		if err := wallets.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("AddTransaction failed: %v", err)
		}
	}

	second.Status = storage.TransactionCompleted
	second.VoucherID = "voucher-1"
	if err := wallets.UpdateTransaction(ctx, second); err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}

	transactions, err := wallets.ListTransactions(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(transactions))
	}
	if transactions[0].ID != "tx-1" || transactions[1].ID != "tx-2" {
		t.Errorf("Expected chronological order tx-1, tx-2; got %s, %s", transactions[0].ID, transactions[1].ID)
	}
	if transactions[1].Status != storage.TransactionCompleted {
		t.Errorf("Expected updated status completed, got %s", transactions[1].Status)
	}
	if transactions[1].VoucherID != "voucher-1" {
		t.Errorf("Expected voucher-1 on completed purchase, got %q", transactions[1].VoucherID)
	}

	missing := storage.Transaction{ID: "tx-missing", OwnerID: "owner-1", CreatedAt: base}
	if err := wallets.UpdateTransaction(ctx, missing); err != storage.ErrNotFound {
		t.Errorf("Expected ErrNotFound updating missing transaction, got %v", err)
	}
}
