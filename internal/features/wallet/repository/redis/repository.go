package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"steam-giveaway-backend/internal/features/wallet/models"
	"steam-giveaway-backend/internal/features/wallet/repository"
)

const (
	keyPrefixBalance = "credits:balance:"
	keyPrefixLedger  = "credits:ledger:"
)

// debitScript checks and decrements the balance in one step and
// appends the ledger record on success. KEYS: balance, ledger.
// ARGV: amount, ledger json. Returns {1, new balance} on success and
// {0, current balance} when the balance is short.
var debitScript = redis.NewScript(`
local bal = tonumber(redis.call('GET', KEYS[1]) or '0')
local amt = tonumber(ARGV[1])
if bal < amt then
	return {0, bal}
end
local after = redis.call('DECRBY', KEYS[1], amt)
redis.call('LPUSH', KEYS[2], ARGV[2])
return {1, after}
`)

type redisRepository struct {
	client redis.UniversalClient
}

func NewRedisWalletRepository(client redis.UniversalClient) repository.WalletRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Balance(ctx context.Context, steamID string) (int64, error) {
	balance, err := r.client.Get(ctx, keyPrefixBalance+steamID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return balance, err
}

func (r *redisRepository) Debit(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	amount := -entry.Amount
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be negative, got %d", entry.Amount)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	res, err := debitScript.Run(ctx, r.client,
		[]string{keyPrefixBalance + entry.SteamID, keyPrefixLedger + entry.SteamID},
		amount, data).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("failed to debit: %w", err)
	}
	if res[0] == 0 {
		return res[1], repository.ErrInsufficientBalance
	}
	return res[1], nil
}

func (r *redisRepository) Credit(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	if entry.Amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", entry.Amount)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	incr := pipe.IncrBy(ctx, keyPrefixBalance+entry.SteamID, entry.Amount)
	pipe.LPush(ctx, keyPrefixLedger+entry.SteamID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to credit: %w", err)
	}
	return incr.Val(), nil
}

func (r *redisRepository) Ledger(ctx context.Context, steamID string, limit int64) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := r.client.LRange(ctx, keyPrefixLedger+steamID, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LedgerEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.LedgerEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
