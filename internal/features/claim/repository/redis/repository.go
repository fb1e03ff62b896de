package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"steam-giveaway-backend/internal/features/claim/models"
	"steam-giveaway-backend/internal/features/claim/repository"
)

const (
	keyPrefixClaim          = "claim:"
	keyPrefixGiveawayClaims = "giveaway:claims:"
	keyPrefixUserClaims     = "user:claims:"
	keyPrefixWinnerClaim    = "claim:winner:"
)

type redisRepository struct {
	client redis.UniversalClient
}

func NewRedisClaimRepository(client redis.UniversalClient) repository.ClaimRepository {
	return &redisRepository{client: client}
}

func makeClaimKey(id string) string { return keyPrefixClaim + id }

func makeWinnerClaimKey(giveawayID, steamID string) string {
	return keyPrefixWinnerClaim + giveawayID + ":" + steamID
}

func (r *redisRepository) Create(ctx context.Context, claim *models.ManualClaim) error {
	// One claim per winner; the per-winner pointer key is the barrier.
	ok, err := r.client.SetNX(ctx, makeWinnerClaimKey(claim.GiveawayID, claim.SteamID), claim.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrClaimExists
	}

	data, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeClaimKey(claim.ID), data, 0)
	pipe.SAdd(ctx, keyPrefixGiveawayClaims+claim.GiveawayID, claim.ID)
	pipe.SAdd(ctx, keyPrefixUserClaims+claim.SteamID, claim.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.ManualClaim, error) {
	data, err := r.client.Get(ctx, makeClaimKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}

	var claim models.ManualClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *redisRepository) GetByWinner(ctx context.Context, giveawayID, steamID string) (*models.ManualClaim, error) {
	id, err := r.client.Get(ctx, makeWinnerClaimKey(giveawayID, steamID)).Result()
	if err == redis.Nil {
		return nil, repository.ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *redisRepository) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.ManualClaim, error) {
	return r.listBySet(ctx, keyPrefixGiveawayClaims+giveawayID)
}

func (r *redisRepository) ListBySteamID(ctx context.Context, steamID string) ([]*models.ManualClaim, error) {
	return r.listBySet(ctx, keyPrefixUserClaims+steamID)
}

func (r *redisRepository) listBySet(ctx context.Context, key string) ([]*models.ManualClaim, error) {
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	claims := make([]*models.ManualClaim, 0, len(ids))
	for _, id := range ids {
		claim, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrClaimNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get claim %s: %w", id, err)
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

func (r *redisRepository) Update(ctx context.Context, claim *models.ManualClaim) error {
	data, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to marshal claim: %w", err)
	}
	return r.client.Set(ctx, makeClaimKey(claim.ID), data, 0).Err()
}
