package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"steam-giveaway-backend/internal/features/user/models"
	"steam-giveaway-backend/internal/features/user/repository"
)

const keyPrefixSettings = "user:settings:"

type redisRepository struct {
	client redis.UniversalClient
}

func NewRedisSettingsRepository(client redis.UniversalClient) repository.SettingsRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Get(ctx context.Context, steamID string) (*models.Settings, error) {
	data, err := r.client.Get(ctx, keyPrefixSettings+steamID).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	var settings models.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *redisRepository) Save(ctx context.Context, settings *models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return r.client.Set(ctx, keyPrefixSettings+settings.SteamID, data, 0).Err()
}
