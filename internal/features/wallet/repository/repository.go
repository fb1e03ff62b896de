package repository

import (
	"context"
	"errors"

	"steam-giveaway-backend/internal/features/wallet/models"
)

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// WalletRepository keeps per-user credit balances and an append-only
// movement ledger.
type WalletRepository interface {
	Balance(ctx context.Context, steamID string) (int64, error)
	// Debit atomically checks and decrements the balance, recording
	// the movement. Returns the balance after the debit.
	Debit(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	// Credit increments the balance and records the movement. Returns
	// the balance after the credit.
	Credit(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	Ledger(ctx context.Context, steamID string, limit int64) ([]models.LedgerEntry, error)
}
