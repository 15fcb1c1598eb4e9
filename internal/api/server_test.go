package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/storage/bolt"
	"github.com/goodtune/hotspotd/internal/voucher"
	"github.com/goodtune/hotspotd/internal/wallet"
)

type testEnv struct {
	server   *Server
	store    storage.Store
	vouchers *voucher.Service
	wallets  *wallet.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	logger := zerolog.Nop()
	vouchers := voucher.NewService(store, voucher.RealClock{}, logger)
	wallets := wallet.NewService(store, vouchers, logger)

	plan := storage.ServicePlan{
		ID:            "plan-1h",
		Name:          "1 Hour",
		Price:         2.50,
		DurationHours: 1,
		MaxDevices:    1,
		Active:        true,
	}
	if err := store.Plans().Upsert(context.Background(), plan); err != nil {
		t.Fatalf("Failed to seed plan: %v", err)
	}

	server := NewServer(Config{ListenAddr: "127.0.0.1:0"}, store, vouchers, wallets, logger)

	return &testEnv{server: server, store: store, vouchers: vouchers, wallets: wallets}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) mustCreateVoucher(t *testing.T) *storage.Voucher {
	t.Helper()
	v, err := e.vouchers.Create(context.Background(), "owner-1", "plan-1h", 0)
	if err != nil {
		t.Fatalf("Create voucher failed: %v", err)
	}
	return v
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
}

func TestHotspotConnect(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t)

	rec := env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{
		Code:      v.Code,
		DeviceID:  "aa:bb:cc:dd:ee:ff",
		IPAddress: "10.0.0.5",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	voucherBody := body["voucher"].(map[string]interface{})
	if voucherBody["status"] != "active" {
		t.Errorf("Expected active voucher, got %v", voucherBody["status"])
	}
	if body["remaining_minutes"].(float64) != 60 {
		t.Errorf("Expected 60 remaining minutes, got %v", body["remaining_minutes"])
	}
}

func TestHotspotConnect_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{
		Code:     "NOPE2345",
		DeviceID: "device-a",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}

func TestHotspotConnect_CapExceeded(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t) // plan caps at 1 device

	rec := env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{Code: v.Code, DeviceID: "device-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{Code: v.Code, DeviceID: "device-b"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHotspotConnect_ExpiredVoucher(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t)
	if _, err := env.vouchers.Expire(context.Background(), v.ID); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{Code: v.Code, DeviceID: "device-a"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d", rec.Code)
	}
}

func TestHotspotDisconnect(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t)

	rec := env.do(t, http.MethodPost, "/api/v1/hotspot/connect", connectRequest{Code: v.Code, DeviceID: "device-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/hotspot/disconnect", disconnectRequest{Code: v.Code, DeviceID: "device-a"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	voucherBody := body["voucher"].(map[string]interface{})
	if voucherBody["status"] != "paused" {
		t.Errorf("Expected paused voucher after last disconnect, got %v", voucherBody["status"])
	}

	// Disconnecting again is rejected
	rec = env.do(t, http.MethodPost, "/api/v1/hotspot/disconnect", disconnectRequest{Code: v.Code, DeviceID: "device-a"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
}

func TestHotspotStatus(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/hotspot/status?code=%s&device_id=device-a", v.Code), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["valid"] != true {
		t.Errorf("Expected valid true, got %v", body["valid"])
	}
}

func TestPlanCRUD(t *testing.T) {
	env := newTestEnv(t)

	plan := storage.ServicePlan{
		Name:          "1 Day",
		Price:         10,
		DurationHours: 24,
		MaxDevices:    4,
		Active:        true,
	}
	rec := env.do(t, http.MethodPost, "/api/v1/plans", plan)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created storage.ServicePlan
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode created plan: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected generated plan ID")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/plans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Errorf("Expected 2 plans, got %v", body["count"])
	}

	created.Price = 12
	rec = env.do(t, http.MethodPut, "/api/v1/plans/"+created.ID, created)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/plans/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/plans/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestPlanValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/plans", storage.ServicePlan{Name: "", DurationHours: 1, MaxDevices: 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing name, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/plans", storage.ServicePlan{Name: "Bad", DurationHours: 0, MaxDevices: 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for zero duration, got %d", rec.Code)
	}
}

func TestVoucherEndpoints(t *testing.T) {
	env := newTestEnv(t)
	v := env.mustCreateVoucher(t)

	rec := env.do(t, http.MethodGet, "/api/v1/vouchers?owner_id=owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Errorf("Expected 1 voucher, got %v", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/vouchers/"+v.Code, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["remaining_minutes"].(float64) != 60 {
		t.Errorf("Expected 60 remaining minutes, got %v", body["remaining_minutes"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/vouchers/"+v.Code+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/vouchers/"+v.Code+"/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Pausing a paused voucher is a state conflict
	rec = env.do(t, http.MethodPost, "/api/v1/vouchers/"+v.Code+"/pause", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", rec.Code)
	}
}

func TestWalletEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/wallets/owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var w storage.Wallet
	if err := json.Unmarshal(rec.Body.Bytes(), &w); err != nil {
		t.Fatalf("Failed to decode wallet: %v", err)
	}
	if w.Balance != 0 {
		t.Errorf("Expected zero balance, got %f", w.Balance)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/owner-1/fund", fundRequest{Amount: 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/owner-1/fund", fundRequest{Amount: -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for negative amount, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/owner-1/purchase", purchaseRequest{PlanID: "plan-1h"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	voucherBody := body["voucher"].(map[string]interface{})
	if voucherBody["status"] != "unused" {
		t.Errorf("Expected unused voucher, got %v", voucherBody["status"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/owner-2/purchase", purchaseRequest{PlanID: "plan-1h"})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("Expected 402 for empty wallet, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/owner-1/purchase", purchaseRequest{PlanID: "plan-missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown plan, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/wallets/owner-1/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Errorf("Expected 2 transactions, got %v", body["count"])
	}
}
