package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
)

// PlanHandler handles service plan catalog requests.
type PlanHandler struct {
	store    storage.PlanStore
	vouchers *voucher.Service
	logger   zerolog.Logger
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(store storage.PlanStore, vouchers *voucher.Service, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{
		store:    store,
		vouchers: vouchers,
		logger:   logger.With().Str("handler", "plan").Logger(),
	}
}

// List returns all plans, or only active ones with ?active=true.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		plans []storage.ServicePlan
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		plans, err = h.store.ListActive(ctx)
	} else {
		plans, err = h.store.List(ctx)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list plans")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve plans")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// Get returns a single plan by ID.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	plan, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found")
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to get plan")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve plan")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// Create adds a new plan to the catalog.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var plan storage.ServicePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validatePlan(&plan); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	if err := h.store.Upsert(ctx, plan); err != nil {
		h.logger.Error().Err(err).Str("id", plan.ID).Msg("Failed to create plan")
		writeError(w, http.StatusInternalServerError, "Failed to create plan")
		return
	}

	h.logger.Info().Str("id", plan.ID).Str("name", plan.Name).Msg("Plan created")
	writeJSON(w, http.StatusCreated, plan)
}

// Update replaces an existing plan.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found")
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to get plan")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve plan")
		return
	}

	var plan storage.ServicePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	plan.ID = id

	if err := validatePlan(&plan); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Upsert(ctx, plan); err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to update plan")
		writeError(w, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	// Vouchers resolve quota through a plan cache; drop the stale entry.
	h.vouchers.InvalidatePlan(id)

	h.logger.Info().Str("id", id).Msg("Plan updated")
	writeJSON(w, http.StatusOK, plan)
}

// Delete removes a plan from the catalog.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Plan not found")
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to get plan")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve plan")
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to delete plan")
		writeError(w, http.StatusInternalServerError, "Failed to delete plan")
		return
	}

	h.vouchers.InvalidatePlan(id)

	h.logger.Info().Str("id", id).Msg("Plan deleted")
	w.WriteHeader(http.StatusNoContent)
}

func validatePlan(plan *storage.ServicePlan) error {
	if plan.Name == "" {
		return errors.New("plan name is required")
	}
	if plan.Price < 0 {
		return errors.New("plan price must not be negative")
	}
	if plan.DurationHours <= 0 {
		return errors.New("plan duration must be positive")
	}
	if plan.MaxDevices <= 0 {
		return errors.New("plan device limit must be positive")
	}
	return nil
}
