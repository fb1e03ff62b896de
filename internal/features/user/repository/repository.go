package repository

import (
	"context"
	"errors"

	"steam-giveaway-backend/internal/features/user/models"
)

var ErrSettingsNotFound = errors.New("settings not found")

type SettingsRepository interface {
	Get(ctx context.Context, steamID string) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}
