package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/giveaway/repository"
)

const (
	keyPrefixGiveaway     = "giveaway:"
	keyPrefixEntries      = "giveaway:entries:"
	keyPrefixCredits      = "giveaway:credits:"
	keyPrefixEnteredAt    = "giveaway:entered_at:"
	keyPrefixUpdatedAt    = "giveaway:entry_updated_at:"
	keyPrefixTotalEntries = "giveaway:total_entries:"
	keyPrefixParticipants = "giveaway:total_participants:"
	keyPrefixWinners      = "giveaway:winners:"
	keyAllGiveaways       = "giveaways:all"
	keyUndrawnGiveaways   = "giveaways:undrawn"
)

// addEntriesScript bumps a participant's entry count and the aggregate
// counters in one atomic step. KEYS: entries hash, credits hash,
// entered_at hash, entry_updated_at hash, total entries counter,
// participants counter. ARGV: steam id, count, credits, now. Returns 1
// on the participant's first entry.
var addEntriesScript = redis.NewScript(`
local first = redis.call('HSETNX', KEYS[3], ARGV[1], ARGV[4])
redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
redis.call('HINCRBY', KEYS[2], ARGV[1], ARGV[3])
redis.call('HSET', KEYS[4], ARGV[1], ARGV[4])
redis.call('INCRBY', KEYS[5], ARGV[2])
if first == 1 then
	redis.call('INCR', KEYS[6])
end
return first
`)

type redisRepository struct {
	client redis.UniversalClient
}

func NewRedisGiveawayRepository(client redis.UniversalClient) repository.GiveawayRepository {
	return &redisRepository{client: client}
}

func makeGiveawayKey(id string) string { return keyPrefixGiveaway + id }
func makeWinnersKey(id string) string  { return keyPrefixWinners + id }

func (r *redisRepository) Create(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.ID), data, 0)
	pipe.SAdd(ctx, keyAllGiveaways, giveaway.ID)
	pipe.ZAdd(ctx, keyUndrawnGiveaways, redis.Z{
		Score:  float64(giveaway.EndAt.Unix()),
		Member: giveaway.ID,
	})
	pipe.Set(ctx, keyPrefixTotalEntries+giveaway.ID, 0, 0)
	pipe.Set(ctx, keyPrefixParticipants+giveaway.ID, 0, 0)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	data, err := r.client.Get(ctx, makeGiveawayKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, err
	}

	var giveaway models.Giveaway
	if err := json.Unmarshal(data, &giveaway); err != nil {
		return nil, err
	}

	return &giveaway, nil
}

func (r *redisRepository) Update(ctx context.Context, giveaway *models.Giveaway) error {
	data, err := json.Marshal(giveaway)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, makeGiveawayKey(giveaway.ID), data, 0).Err()
}

func (r *redisRepository) List(ctx context.Context) ([]*models.Giveaway, error) {
	ids, err := r.client.SMembers(ctx, keyAllGiveaways).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway ids: %w", err)
	}

	giveaways := make([]*models.Giveaway, 0, len(ids))
	for _, id := range ids {
		giveaway, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrGiveawayNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get giveaway %s: %w", id, err)
		}
		giveaways = append(giveaways, giveaway)
	}

	return giveaways, nil
}

func (r *redisRepository) AddEntries(ctx context.Context, giveawayID, steamID string, count, credits int64, now time.Time) (bool, error) {
	keys := []string{
		keyPrefixEntries + giveawayID,
		keyPrefixCredits + giveawayID,
		keyPrefixEnteredAt + giveawayID,
		keyPrefixUpdatedAt + giveawayID,
		keyPrefixTotalEntries + giveawayID,
		keyPrefixParticipants + giveawayID,
	}
	first, err := addEntriesScript.Run(ctx, r.client, keys,
		steamID, count, credits, now.UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return false, fmt.Errorf("failed to add entries: %w", err)
	}
	return first == 1, nil
}

func (r *redisRepository) GetEntry(ctx context.Context, giveawayID, steamID string) (*models.Entry, error) {
	pipe := r.client.Pipeline()
	entriesCmd := pipe.HGet(ctx, keyPrefixEntries+giveawayID, steamID)
	creditsCmd := pipe.HGet(ctx, keyPrefixCredits+giveawayID, steamID)
	createdCmd := pipe.HGet(ctx, keyPrefixEnteredAt+giveawayID, steamID)
	updatedCmd := pipe.HGet(ctx, keyPrefixUpdatedAt+giveawayID, steamID)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	entries, err := entriesCmd.Int64()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &models.Entry{
		GiveawayID: giveawayID,
		SteamID:    steamID,
		Entries:    entries,
	}
	entry.CreditsSpent, _ = creditsCmd.Int64()
	entry.CreatedAt = parseEntryTime(createdCmd.Val())
	entry.UpdatedAt = parseEntryTime(updatedCmd.Val())
	return entry, nil
}

func (r *redisRepository) GetEntries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	pipe := r.client.Pipeline()
	entriesCmd := pipe.HGetAll(ctx, keyPrefixEntries+giveawayID)
	creditsCmd := pipe.HGetAll(ctx, keyPrefixCredits+giveawayID)
	createdCmd := pipe.HGetAll(ctx, keyPrefixEnteredAt+giveawayID)
	updatedCmd := pipe.HGetAll(ctx, keyPrefixUpdatedAt+giveawayID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	credits := creditsCmd.Val()
	created := createdCmd.Val()
	updated := updatedCmd.Val()

	result := make([]models.Entry, 0, len(entriesCmd.Val()))
	for steamID, raw := range entriesCmd.Val() {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt entry count for %s: %w", steamID, err)
		}
		spent, _ := strconv.ParseInt(credits[steamID], 10, 64)
		result = append(result, models.Entry{
			GiveawayID:   giveawayID,
			SteamID:      steamID,
			Entries:      count,
			CreditsSpent: spent,
			CreatedAt:    parseEntryTime(created[steamID]),
			UpdatedAt:    parseEntryTime(updated[steamID]),
		})
	}
	return result, nil
}

func (r *redisRepository) GetWeights(ctx context.Context, giveawayID string) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, keyPrefixEntries+giveawayID).Result()
	if err != nil {
		return nil, err
	}

	weights := make(map[string]int64, len(raw))
	for steamID, val := range raw {
		count, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt entry count for %s: %w", steamID, err)
		}
		weights[steamID] = count
	}
	return weights, nil
}

func (r *redisRepository) TotalEntries(ctx context.Context, giveawayID string) (int64, error) {
	total, err := r.client.Get(ctx, keyPrefixTotalEntries+giveawayID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return total, err
}

func (r *redisRepository) TotalParticipants(ctx context.Context, giveawayID string) (int64, error) {
	total, err := r.client.Get(ctx, keyPrefixParticipants+giveawayID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return total, err
}

func (r *redisRepository) DueForDraw(ctx context.Context, before time.Time, limit int64) ([]string, error) {
	return r.client.ZRangeByScore(ctx, keyUndrawnGiveaways, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(before.Unix(), 10),
		Count: limit,
	}).Result()
}

func (r *redisRepository) MarkDrawn(ctx context.Context, giveaway *models.Giveaway, winners *models.WinnerSet) error {
	winnersData, err := json.Marshal(winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}

	// SetNX on the winners key is the idempotency barrier: a second
	// draw of the same giveaway loses the race and changes nothing.
	ok, err := r.client.SetNX(ctx, makeWinnersKey(giveaway.ID), winnersData, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrAlreadyDrawn
	}

	data, err := json.Marshal(giveaway)
	if err != nil {
		return fmt.Errorf("failed to marshal giveaway: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeGiveawayKey(giveaway.ID), data, 0)
	pipe.ZRem(ctx, keyUndrawnGiveaways, giveaway.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) RemoveFromUndrawn(ctx context.Context, giveawayID string) error {
	return r.client.ZRem(ctx, keyUndrawnGiveaways, giveawayID).Err()
}

func (r *redisRepository) GetWinnerSet(ctx context.Context, giveawayID string) (*models.WinnerSet, error) {
	data, err := r.client.Get(ctx, makeWinnersKey(giveawayID)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrWinnersNotFound
	}
	if err != nil {
		return nil, err
	}

	var winners models.WinnerSet
	if err := json.Unmarshal(data, &winners); err != nil {
		return nil, err
	}
	return &winners, nil
}

func (r *redisRepository) SaveWinnerSet(ctx context.Context, winners *models.WinnerSet) error {
	data, err := json.Marshal(winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}
	return r.client.Set(ctx, makeWinnersKey(winners.GiveawayID), data, 0).Err()
}

func (r *redisRepository) UpdateWinner(ctx context.Context, giveawayID, steamID string, mutate func(*models.Winner) error) (*models.WinnerSet, error) {
	key := makeWinnersKey(giveawayID)
	var updated *models.WinnerSet

	// Optimistic WATCH loop; concurrent status writes retry instead of
	// clobbering each other.
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return repository.ErrWinnersNotFound
		}
		if err != nil {
			return err
		}

		var winners models.WinnerSet
		if err := json.Unmarshal(data, &winners); err != nil {
			return err
		}

		winner := winners.Find(steamID)
		if winner == nil {
			return repository.ErrWinnerNotFound
		}
		if err := mutate(winner); err != nil {
			return err
		}

		out, err := json.Marshal(&winners)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = &winners
		}
		return err
	}

	for i := 0; i < 5; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update winner %s: too much contention", steamID)
}

func parseEntryTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
