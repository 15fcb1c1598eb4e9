package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/wallet"
)

// WalletHandler handles prepaid wallet and purchase requests.
type WalletHandler struct {
	wallets *wallet.Service
	logger  zerolog.Logger
}

// NewWalletHandler creates a new wallet handler.
func NewWalletHandler(wallets *wallet.Service, logger zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logger.With().Str("handler", "wallet").Logger(),
	}
}

type fundRequest struct {
	Amount float64 `json:"amount"`
}

type purchaseRequest struct {
	PlanID string `json:"plan_id"`
}

// Balance returns the owner's wallet balance.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mux.Vars(r)["owner_id"]

	wlt, err := h.wallets.Balance(ctx, ownerID)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to get wallet")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve wallet")
		return
	}

	writeJSON(w, http.StatusOK, wlt)
}

// Fund credits the owner's wallet.
func (h *WalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mux.Vars(r)["owner_id"]

	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wlt, err := h.wallets.AddFunds(ctx, ownerID, req.Amount)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "Amount must be positive")
			return
		}
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to fund wallet")
		writeError(w, http.StatusInternalServerError, "Failed to fund wallet")
		return
	}

	writeJSON(w, http.StatusOK, wlt)
}

// Transactions returns the owner's transaction history.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mux.Vars(r)["owner_id"]

	transactions, err := h.wallets.Transactions(ctx, ownerID)
	if err != nil {
		h.logger.Error().Err(err).Str("owner_id", ownerID).Msg("Failed to list transactions")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Purchase debits the wallet and issues a voucher for the plan.
func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mux.Vars(r)["owner_id"]

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	v, tx, err := h.wallets.Purchase(ctx, ownerID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrPlanUnavailable):
			writeError(w, http.StatusNotFound, "Plan is not available")
		case errors.Is(err, wallet.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "Insufficient wallet balance")
		default:
			h.logger.Error().Err(err).Str("owner_id", ownerID).Str("plan_id", req.PlanID).Msg("Purchase failed")
			writeError(w, http.StatusInternalServerError, "Purchase failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"voucher":     v,
		"transaction": tx,
	})
}
