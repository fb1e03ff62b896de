package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/features/wallet/models"
	"steam-giveaway-backend/internal/features/wallet/repository"
)

type memWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	ledgers  map[string][]models.LedgerEntry
}

func newMemWallet() *memWallet {
	return &memWallet{
		balances: make(map[string]int64),
		ledgers:  make(map[string][]models.LedgerEntry),
	}
}

func (m *memWallet) Balance(_ context.Context, steamID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[steamID], nil
}

func (m *memWallet) Debit(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount := -entry.Amount
	if m.balances[entry.SteamID] < amount {
		return m.balances[entry.SteamID], repository.ErrInsufficientBalance
	}
	m.balances[entry.SteamID] -= amount
	m.ledgers[entry.SteamID] = append([]models.LedgerEntry{*entry}, m.ledgers[entry.SteamID]...)
	return m.balances[entry.SteamID], nil
}

func (m *memWallet) Credit(_ context.Context, entry *models.LedgerEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[entry.SteamID] += entry.Amount
	m.ledgers[entry.SteamID] = append([]models.LedgerEntry{*entry}, m.ledgers[entry.SteamID]...)
	return m.balances[entry.SteamID], nil
}

func (m *memWallet) Ledger(_ context.Context, steamID string, limit int64) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ledgers[steamID]
	if int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	return append([]models.LedgerEntry(nil), entries...), nil
}

const steamID = "76561198000000001"

func TestDebitInsufficientBalance(t *testing.T) {
	svc := NewWalletService(newMemWallet())

	require.NoError(t, svc.Credit(context.Background(), steamID, 30, "topup"))

	err := svc.Debit(context.Background(), steamID, 50, "giveaway_entry:g1")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, appErr.Code)

	balance, err := svc.Balance(context.Background(), steamID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestAmountsMustBePositive(t *testing.T) {
	svc := NewWalletService(newMemWallet())

	assert.Error(t, svc.Debit(context.Background(), steamID, 0, "x"))
	assert.Error(t, svc.Debit(context.Background(), steamID, -5, "x"))
	assert.Error(t, svc.Credit(context.Background(), steamID, 0, "x"))
	assert.Error(t, svc.Credit(context.Background(), steamID, -5, "x"))
}

func TestLedgerRecordsMovements(t *testing.T) {
	svc := NewWalletService(newMemWallet())

	require.NoError(t, svc.Credit(context.Background(), steamID, 100, "topup"))
	require.NoError(t, svc.Debit(context.Background(), steamID, 40, "giveaway_entry:g1"))

	entries, err := svc.Ledger(context.Background(), steamID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-40), entries[0].Amount)
	assert.Equal(t, "giveaway_entry:g1", entries[0].Reason)
	assert.Equal(t, int64(100), entries[1].Amount)
}

// Balance always equals the signed sum of ledger entries, and never
// goes negative.
func TestBalanceMatchesLedger(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := NewWalletService(newMemWallet())
		ctx := context.Background()

		ops := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			amount := rapid.Int64Range(1, 100).Draw(t, "amount")
			if rapid.Bool().Draw(t, "credit") {
				require.NoError(t, svc.Credit(ctx, steamID, amount, "topup"))
			} else {
				err := svc.Debit(ctx, steamID, amount, "spend")
				if err != nil {
					appErr, ok := apperrors.AsAppError(err)
					require.True(t, ok)
					require.Equal(t, apperrors.ErrCodeInsufficientBalance, appErr.Code)
				}
			}
		}

		balance, err := svc.Balance(ctx, steamID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, balance, int64(0))

		entries, err := svc.Ledger(ctx, steamID, 1000)
		require.NoError(t, err)
		var sum int64
		for _, e := range entries {
			sum += e.Amount
		}
		require.Equal(t, sum, balance)
	})
}
