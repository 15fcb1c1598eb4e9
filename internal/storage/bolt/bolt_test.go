package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/hotspotd/internal/storage"
)

func TestVoucherStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	activation := time.Now().UTC().Truncate(time.Second)
	voucher := storage.Voucher{
		ID:             "voucher-1",
		Code:           "ABCD2345",
		OwnerID:        "owner-1",
		PlanID:         "plan-1",
		Status:         storage.StatusActive,
		IsActive:       true,
		UsedTime:       15,
		ActivationTime: &activation,
		ActiveDevices:  1,
		AllowedDevices: 2,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if err := store.Vouchers().Upsert(context.Background(), voucher); err != nil {
		t.Fatalf("upsert voucher: %v", err)
	}

	got, err := store.Vouchers().Get(context.Background(), "voucher-1")
	if err != nil {
		t.Fatalf("get voucher: %v", err)
	}
	if got.Code != "ABCD2345" {
		t.Fatalf("expected code ABCD2345, got %s", got.Code)
	}
	if got.UsedTime != 15 {
		t.Fatalf("expected used time 15, got %d", got.UsedTime)
	}
	if got.ActivationTime == nil || !got.ActivationTime.Equal(activation) {
		t.Fatalf("expected activation time %v, got %v", activation, got.ActivationTime)
	}
}

func TestVoucherStoreCodeIndex(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	voucher := storage.Voucher{
		ID:      "voucher-2",
		Code:    "WXYZ6789",
		OwnerID: "owner-1",
		PlanID:  "plan-1",
		Status:  storage.StatusUnused,
	}
	if err := store.Vouchers().Upsert(context.Background(), voucher); err != nil {
		t.Fatalf("upsert voucher: %v", err)
	}

	got, err := store.Vouchers().GetByCode(context.Background(), "WXYZ6789")
	if err != nil {
		t.Fatalf("get voucher by code: %v", err)
	}
	if got.ID != "voucher-2" {
		t.Fatalf("expected voucher-2, got %s", got.ID)
	}

	exists, err := store.Vouchers().CodeExists(context.Background(), "WXYZ6789")
	if err != nil {
		t.Fatalf("code exists: %v", err)
	}
	if !exists {
		t.Fatal("expected code to exist")
	}

	if _, err := store.Vouchers().GetByCode(context.Background(), "NOPE2345"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestVoucherStoreListActive(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	vouchers := []storage.Voucher{
		{ID: "v-a", Code: "AAAA2345", OwnerID: "o1", Status: storage.StatusActive},
		{ID: "v-b", Code: "BBBB2345", OwnerID: "o1", Status: storage.StatusPaused},
		{ID: "v-c", Code: "CCCC2345", OwnerID: "o2", Status: storage.StatusActive},
	}
	for _, v := range vouchers {
		if err := store.Vouchers().Upsert(context.Background(), v); err != nil {
			t.Fatalf("upsert voucher: %v", err)
		}
	}

	active, err := store.Vouchers().ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active vouchers: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active vouchers, got %d", len(active))
	}

	owned, err := store.Vouchers().ListByOwner(context.Background(), "o1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 vouchers for o1, got %d", len(owned))
	}
}

func TestDeviceSessionStorePrefixScan(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	sessions := []storage.DeviceSession{
		{ID: "s-1", VoucherID: "voucher-1", DeviceID: "device-a", Connected: true},
		{ID: "s-2", VoucherID: "voucher-1", DeviceID: "device-b", Connected: false},
		{ID: "s-3", VoucherID: "voucher-10", DeviceID: "device-c", Connected: true},
	}
	for _, s := range sessions {
		if err := store.DeviceSessions().Upsert(context.Background(), s); err != nil {
			t.Fatalf("upsert session: %v", err)
		}
	}

	// The voucher-1 prefix must not pick up voucher-10 sessions
	all, err := store.DeviceSessions().ListByVoucher(context.Background(), "voucher-1")
	if err != nil {
		t.Fatalf("list by voucher: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions for voucher-1, got %d", len(all))
	}

	connected, err := store.DeviceSessions().ListConnected(context.Background(), "voucher-1")
	if err != nil {
		t.Fatalf("list connected: %v", err)
	}
	if len(connected) != 1 {
		t.Fatalf("expected 1 connected session, got %d", len(connected))
	}
	if connected[0].DeviceID != "device-a" {
		t.Fatalf("expected device-a, got %s", connected[0].DeviceID)
	}
}

func TestPlanStoreCRUD(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	plans := []storage.ServicePlan{
		{ID: "plan-1h", Name: "1 Hour", Price: 2.5, DurationHours: 1, MaxDevices: 2, Active: true},
		{ID: "plan-1d", Name: "1 Day", Price: 10, DurationHours: 24, MaxDevices: 4, Active: false},
	}
	for _, p := range plans {
		if err := store.Plans().Upsert(context.Background(), p); err != nil {
			t.Fatalf("upsert plan: %v", err)
		}
	}

	all, err := store.Plans().List(context.Background())
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(all))
	}

	active, err := store.Plans().ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active plans: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active plan, got %d", len(active))
	}

	if err := store.Plans().Delete(context.Background(), "plan-1d"); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if _, err := store.Plans().Get(context.Background(), "plan-1d"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestWalletStoreTransactionOrder(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	if err := store.Wallets().Upsert(context.Background(), storage.Wallet{OwnerID: "owner-1", Balance: 20}); err != nil {
		t.Fatalf("upsert wallet: %v", err)
	}

	base := time.Now().UTC()
	transactions := []storage.Transaction{
		{ID: "tx-1", OwnerID: "owner-1", Amount: 20, Type: "funding", Status: storage.TransactionCompleted, CreatedAt: base},
		{ID: "tx-2", OwnerID: "owner-1", Amount: 2.5, Type: "purchase", Status: storage.TransactionPending, CreatedAt: base.Add(time.Second)},
		{ID: "tx-3", OwnerID: "owner-2", Amount: 5, Type: "funding", Status: storage.TransactionCompleted, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, tx := range transactions {
		if err := store.Wallets().AddTransaction(context.Background(), tx); err != nil {
			t.Fatalf("add transaction: %v", err)
		}
	}

	got, err := store.Wallets().ListTransactions(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions for owner-1, got %d", len(got))
	}
	if got[0].ID != "tx-1" || got[1].ID != "tx-2" {
		t.Fatalf("expected chronological order tx-1, tx-2; got %s, %s", got[0].ID, got[1].ID)
	}

	updated := transactions[1]
	updated.Status = storage.TransactionCompleted
	updated.VoucherID = "voucher-1"
	if err := store.Wallets().UpdateTransaction(context.Background(), updated); err != nil {
		t.Fatalf("update transaction: %v", err)
	}

	got, err = store.Wallets().ListTransactions(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if got[1].Status != storage.TransactionCompleted {
		t.Fatalf("expected completed status, got %s", got[1].Status)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hotspotd.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
