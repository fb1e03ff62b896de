package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/features/wallet/models"
	"steam-giveaway-backend/internal/features/wallet/repository"
)

// WalletService exposes user credit balances. It satisfies the
// CreditWallet interface the giveaway service charges through.
type WalletService struct {
	repo repository.WalletRepository
	now  func() time.Time
}

func NewWalletService(repo repository.WalletRepository) *WalletService {
	return &WalletService{repo: repo, now: time.Now}
}

func (s *WalletService) Balance(ctx context.Context, steamID string) (int64, error) {
	balance, err := s.repo.Balance(ctx, steamID)
	if err != nil {
		return 0, apperrors.NewStorageError("get balance", err)
	}
	return balance, nil
}

func (s *WalletService) Debit(ctx context.Context, steamID string, amount int64, reason string) error {
	if amount <= 0 {
		return apperrors.NewInvalidArgumentError("amount", "must be positive")
	}

	entry := &models.LedgerEntry{
		ID:        uuid.NewString(),
		SteamID:   steamID,
		Amount:    -amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	balance, err := s.repo.Debit(ctx, entry)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return apperrors.NewInsufficientBalanceError(amount, balance)
		}
		return apperrors.NewStorageError("debit", err)
	}
	return nil
}

func (s *WalletService) Credit(ctx context.Context, steamID string, amount int64, reason string) error {
	if amount <= 0 {
		return apperrors.NewInvalidArgumentError("amount", "must be positive")
	}

	entry := &models.LedgerEntry{
		ID:        uuid.NewString(),
		SteamID:   steamID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.repo.Credit(ctx, entry); err != nil {
		return apperrors.NewStorageError("credit", err)
	}
	return nil
}

// Grant is the admin-facing credit top-up.
func (s *WalletService) Grant(ctx context.Context, steamID string, amount int64, actor string) (int64, error) {
	if err := s.Credit(ctx, steamID, amount, "admin_grant:"+actor); err != nil {
		return 0, err
	}
	logger.Info().
		Str("steam_id", steamID).
		Int64("amount", amount).
		Str("actor", actor).
		Msg("credits granted")
	return s.Balance(ctx, steamID)
}

func (s *WalletService) Ledger(ctx context.Context, steamID string, limit int64) ([]models.LedgerEntry, error) {
	entries, err := s.repo.Ledger(ctx, steamID, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("get ledger", err)
	}
	return entries, nil
}
