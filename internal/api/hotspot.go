package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
)

// HotspotHandler handles the captive portal boundary requests.
type HotspotHandler struct {
	vouchers *voucher.Service
	logger   zerolog.Logger
}

// NewHotspotHandler creates a new hotspot handler.
func NewHotspotHandler(vouchers *voucher.Service, logger zerolog.Logger) *HotspotHandler {
	return &HotspotHandler{
		vouchers: vouchers,
		logger:   logger.With().Str("handler", "hotspot").Logger(),
	}
}

type connectRequest struct {
	Code       string `json:"code"`
	DeviceID   string `json:"device_id"`
	IPAddress  string `json:"ip_address,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

type disconnectRequest struct {
	Code     string `json:"code"`
	DeviceID string `json:"device_id"`
}

// Connect admits a device against a voucher code and activates the
// voucher in one step.
func (h *HotspotHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "code and device_id are required")
		return
	}

	info := voucher.DeviceInfo{
		IPAddress:  req.IPAddress,
		MACAddress: req.MACAddress,
		DeviceName: req.DeviceName,
	}

	v, session, err := h.vouchers.ConnectAndActivate(ctx, req.Code, req.DeviceID, info)
	if err != nil {
		h.writeVoucherError(w, err, req.Code, req.DeviceID)
		return
	}

	remaining, err := h.vouchers.RemainingMinutes(ctx, v.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("voucher_id", v.ID).Msg("Failed to compute remaining minutes")
		writeError(w, http.StatusInternalServerError, "Failed to compute remaining time")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voucher":           v,
		"session":           session,
		"remaining_minutes": remaining,
	})
}

// Disconnect releases a device's admission on a voucher.
func (h *HotspotHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req disconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" || req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "code and device_id are required")
		return
	}

	v, err := h.vouchers.GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Voucher not found")
			return
		}
		h.logger.Error().Err(err).Str("code", req.Code).Msg("Failed to load voucher")
		writeError(w, http.StatusInternalServerError, "Failed to load voucher")
		return
	}

	if err := h.vouchers.RemoveDevice(ctx, v.ID, req.DeviceID); err != nil {
		h.writeVoucherError(w, err, req.Code, req.DeviceID)
		return
	}

	v, err = h.vouchers.Get(ctx, v.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("code", req.Code).Msg("Failed to reload voucher")
		writeError(w, http.StatusInternalServerError, "Failed to load voucher")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voucher": v,
	})
}

// Status reports the voucher and the requesting device's session.
func (h *HotspotHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	deviceID := r.URL.Query().Get("device_id")
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	v, session, valid, err := h.vouchers.Status(ctx, code, deviceID)
	if err != nil {
		h.writeVoucherError(w, err, code, deviceID)
		return
	}

	remaining, err := h.vouchers.RemainingMinutes(ctx, v.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("voucher_id", v.ID).Msg("Failed to compute remaining minutes")
		writeError(w, http.StatusInternalServerError, "Failed to compute remaining time")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"voucher":           v,
		"session":           session,
		"valid":             valid,
		"remaining_minutes": remaining,
	})
}

// writeVoucherError maps domain rejections to HTTP statuses.
func (h *HotspotHandler) writeVoucherError(w http.ResponseWriter, err error, code, deviceID string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Voucher not found")
	case errors.Is(err, voucher.ErrVoucherNotUsable):
		writeError(w, http.StatusForbidden, "Voucher is not usable")
	case errors.Is(err, voucher.ErrDeviceCapExceeded):
		writeError(w, http.StatusConflict, "Device limit reached for this voucher")
	case errors.Is(err, voucher.ErrDeviceNotConnected):
		writeError(w, http.StatusConflict, "Device is not connected to this voucher")
	case errors.Is(err, voucher.ErrPlanNotFound):
		writeError(w, http.StatusConflict, "Voucher references an unknown plan")
	default:
		h.logger.Error().Err(err).Str("code", code).Str("device_id", deviceID).Msg("Hotspot operation failed")
		writeError(w, http.StatusInternalServerError, "Operation failed")
	}
}
