package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Voucher lifecycle metrics
	VouchersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_vouchers_created_total",
			Help: "Total vouchers issued",
		},
	)

	VouchersActivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_vouchers_activated_total",
			Help: "Total voucher activations (including reactivations after pause)",
		},
	)

	VouchersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_vouchers_expired_total",
			Help: "Total vouchers expired",
		},
	)

	UsageMinutesConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_usage_minutes_consumed_total",
			Help: "Total quota minutes folded into voucher used time",
		},
	)

	// Device admission metrics
	DeviceAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotspotd_device_admissions_total",
			Help: "Device admission attempts by result",
		},
		[]string{"result"},
	)

	DevicesConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hotspotd_devices_connected",
			Help: "Number of currently connected device sessions",
		},
	)

	// Sweep metrics
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_sweep_runs_total",
			Help: "Total expiry sweep runs",
		},
	)

	SweepReclaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hotspotd_sweep_reclaimed_total",
			Help: "Total vouchers reclaimed by the expiry sweep",
		},
	)

	// Wallet metrics
	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotspotd_purchases_total",
			Help: "Voucher purchase attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		VouchersCreated,
		VouchersActivated,
		VouchersExpired,
		UsageMinutesConsumed,
		DeviceAdmissions,
		DevicesConnected,
		SweepRuns,
		SweepReclaimed,
		PurchasesTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
