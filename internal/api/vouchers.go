package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
)

// VoucherHandler handles voucher management requests.
type VoucherHandler struct {
	vouchers *voucher.Service
	logger   zerolog.Logger
}

// NewVoucherHandler creates a new voucher handler.
func NewVoucherHandler(vouchers *voucher.Service, logger zerolog.Logger) *VoucherHandler {
	return &VoucherHandler{
		vouchers: vouchers,
		logger:   logger.With().Str("handler", "voucher").Logger(),
	}
}

// ListByOwner returns all vouchers belonging to an owner.
func (h *VoucherHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	vouchers, err := h.vouchers.ListByOwner(ctx, ownerID)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list vouchers")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve vouchers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vouchers": vouchers,
		"count":    len(vouchers),
	})
}

// GetByCode returns a voucher with its remaining quota.
func (h *VoucherHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	v, err := h.vouchers.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Voucher not found")
			return
		}
		h.logger.Error().Err(err).Str("code", code).Msg("Failed to get voucher")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve voucher")
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
		"remaining_minutes": remaining,
	})
}

// Pause freezes an active voucher.
func (h *VoucherHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.vouchers.Pause, "Voucher is not active")
}

// Activate resumes an unused or paused voucher.
func (h *VoucherHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.vouchers.Activate, "Voucher cannot be activated")
}

func (h *VoucherHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (bool, error), rejectMsg string) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	v, err := h.vouchers.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Voucher not found")
			return
		}
		h.logger.Error().Err(err).Str("code", code).Msg("Failed to get voucher")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve voucher")
		return
	}

	ok, err := op(ctx, v.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("code", code).Msg("Voucher transition failed")
		writeError(w, http.StatusInternalServerError, "Voucher transition failed")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, rejectMsg)
		return
	}

	v, err = h.vouchers.Get(ctx, v.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("code", code).Msg("Failed to reload voucher")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve voucher")
		return
	}

	writeJSON(w, http.StatusOK, v)
}
