package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
	"github.com/goodtune/hotspotd/internal/wallet"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr string
}

// Server exposes the captive portal and management HTTP API.
type Server struct {
	config   Config
	router   *mux.Router
	server   *http.Server
	listener net.Listener
	logger   zerolog.Logger
}

// NewServer creates the API server and wires all routes.
func NewServer(cfg Config, store storage.Store, vouchers *voucher.Service, wallets *wallet.Service, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		config: cfg,
		router: router,
		logger: logger.With().Str("component", "api").Logger(),
	}

	hotspot := NewHotspotHandler(vouchers, s.logger)
	plans := NewPlanHandler(store.Plans(), vouchers, s.logger)
	voucherHandler := NewVoucherHandler(vouchers, s.logger)
	walletHandler := NewWalletHandler(wallets, s.logger)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Captive portal boundary
	api.HandleFunc("/hotspot/connect", hotspot.Connect).Methods(http.MethodPost)
	api.HandleFunc("/hotspot/disconnect", hotspot.Disconnect).Methods(http.MethodPost)
	api.HandleFunc("/hotspot/status", hotspot.Status).Methods(http.MethodGet)

	// Plan catalog
	api.HandleFunc("/plans", plans.List).Methods(http.MethodGet)
	api.HandleFunc("/plans", plans.Create).Methods(http.MethodPost)
	api.HandleFunc("/plans/{id}", plans.Get).Methods(http.MethodGet)
	api.HandleFunc("/plans/{id}", plans.Update).Methods(http.MethodPut)
	api.HandleFunc("/plans/{id}", plans.Delete).Methods(http.MethodDelete)

	// Voucher management
	api.HandleFunc("/vouchers", voucherHandler.ListByOwner).Methods(http.MethodGet)
	api.HandleFunc("/vouchers/{code}", voucherHandler.GetByCode).Methods(http.MethodGet)
	api.HandleFunc("/vouchers/{code}/pause", voucherHandler.Pause).Methods(http.MethodPost)
	api.HandleFunc("/vouchers/{code}/activate", voucherHandler.Activate).Methods(http.MethodPost)

	// Wallets and purchases
	api.HandleFunc("/wallets/{owner_id}", walletHandler.Balance).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{owner_id}/fund", walletHandler.Fund).Methods(http.MethodPost)
	api.HandleFunc("/wallets/{owner_id}/transactions", walletHandler.Transactions).Methods(http.MethodGet)
	api.HandleFunc("/wallets/{owner_id}/purchase", walletHandler.Purchase).Methods(http.MethodPost)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetListener supplies a pre-bound listener (systemd socket activation).
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	if s.listener != nil {
		s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("API server starting on activated socket")
		return s.server.Serve(s.listener)
	}
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("API server starting")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("API server stopping")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
