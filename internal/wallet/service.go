package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goodtune/hotspotd/internal/metrics"
	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
)

var (
	// ErrInsufficientFunds means the wallet balance does not cover the
	// plan price.
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")

	// ErrPlanUnavailable means the requested plan is missing or inactive.
	ErrPlanUnavailable = errors.New("wallet: plan unavailable")

	// ErrInvalidAmount means a non-positive amount was supplied.
	ErrInvalidAmount = errors.New("wallet: invalid amount")
)

// Service owns prepaid balances and the voucher purchase flow.
type Service struct {
	store    storage.Store
	vouchers *voucher.Service
	logger   zerolog.Logger
}

// NewService creates a wallet service.
func NewService(store storage.Store, vouchers *voucher.Service, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		vouchers: vouchers,
		logger:   logger.With().Str("component", "wallet").Logger(),
	}
}

// Balance returns the owner's wallet, creating an empty one on first use.
func (s *Service) Balance(ctx context.Context, ownerID string) (*storage.Wallet, error) {
	w, err := s.store.Wallets().Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &storage.Wallet{OwnerID: ownerID, Balance: 0}, nil
		}
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return w, nil
}

// AddFunds credits the wallet and records a funding transaction.
func (s *Service) AddFunds(ctx context.Context, ownerID string, amount float64) (*storage.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	w, err := s.Balance(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	w.Balance += amount
	if err := s.store.Wallets().Upsert(ctx, *w); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}

	tx := storage.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      amount,
		Type:        "funding",
		Description: "Wallet funding",
		Status:      storage.TransactionCompleted,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Wallets().AddTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.Info().
		Str("owner_id", ownerID).
		Float64("amount", amount).
		Float64("balance", w.Balance).
		Msg("Wallet funded")

	return w, nil
}

// Transactions returns the owner's transaction history.
func (s *Service) Transactions(ctx context.Context, ownerID string) ([]storage.Transaction, error) {
	return s.store.Wallets().ListTransactions(ctx, ownerID)
}

// Purchase debits the wallet by the plan price and issues a voucher. The
// transaction is recorded pending first and completed once the voucher
// exists, so a failed issue leaves an auditable failed record rather
// than a silent missing voucher.
func (s *Service) Purchase(ctx context.Context, ownerID, planID string) (*storage.Voucher, *storage.Transaction, error) {
	plan, err := s.store.Plans().Get(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.PurchasesTotal.WithLabelValues("plan_unavailable").Inc()
			return nil, nil, ErrPlanUnavailable
		}
		return nil, nil, fmt.Errorf("load plan: %w", err)
	}
	if !plan.Active {
		metrics.PurchasesTotal.WithLabelValues("plan_unavailable").Inc()
		return nil, nil, ErrPlanUnavailable
	}

	w, err := s.Balance(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if w.Balance < plan.Price {
		metrics.PurchasesTotal.WithLabelValues("insufficient_funds").Inc()
		return nil, nil, ErrInsufficientFunds
	}

	tx := storage.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      plan.Price,
		Type:        "purchase",
		Description: fmt.Sprintf("Purchased %s plan", plan.Name),
		Status:      storage.TransactionPending,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Wallets().AddTransaction(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("save transaction: %w", err)
	}

	w.Balance -= plan.Price
	if err := s.store.Wallets().Upsert(ctx, *w); err != nil {
		tx.Status = storage.TransactionFailed
		_ = s.store.Wallets().UpdateTransaction(ctx, tx)
		return nil, nil, fmt.Errorf("debit wallet: %w", err)
	}

	v, err := s.vouchers.Create(ctx, ownerID, planID, 0)
	if err != nil {
		tx.Status = storage.TransactionFailed
		_ = s.store.Wallets().UpdateTransaction(ctx, tx)
		return nil, nil, fmt.Errorf("issue voucher: %w", err)
	}

	tx.Status = storage.TransactionCompleted
	tx.VoucherID = v.ID
	if err := s.store.Wallets().UpdateTransaction(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("complete transaction: %w", err)
	}

	metrics.PurchasesTotal.WithLabelValues("completed").Inc()
	s.logger.Info().
		Str("owner_id", ownerID).
		Str("plan_id", planID).
		Str("voucher_id", v.ID).
		Str("code", v.Code).
		Float64("price", plan.Price).
		Msg("Voucher purchased")

	return v, &tx, nil
}
