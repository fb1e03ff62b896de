package service

import (
	"context"
	"errors"
	"time"

	apperrors "steam-giveaway-backend/internal/common/errors"
	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/user/models"
	"steam-giveaway-backend/internal/features/user/repository"
)

type UserService struct {
	repo repository.SettingsRepository
	now  func() time.Time
}

func NewUserService(repo repository.SettingsRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// Settings returns the user's settings, empty defaults for first-time
// users.
func (s *UserService) Settings(ctx context.Context, steamID string) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx, steamID)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return &models.Settings{SteamID: steamID}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get settings", err)
	}
	return settings, nil
}

// GetTradeURL returns the user's saved trade URL, empty when none is
// set. Used as the bot mode eligibility source during draws.
func (s *UserService) GetTradeURL(ctx context.Context, steamID string) (string, error) {
	settings, err := s.Settings(ctx, steamID)
	if err != nil {
		return "", err
	}
	return settings.TradeURL, nil
}

// SetTradeURL validates and stores the user's trade URL. An empty url
// clears it.
func (s *UserService) SetTradeURL(ctx context.Context, steamID, tradeURL string) (*models.Settings, error) {
	if tradeURL != "" && !giveawaymodels.IsValidTradeURL(tradeURL) {
		return nil, apperrors.NewInvalidArgumentError("trade_url", "must be a steamcommunity.com trade offer url")
	}

	settings, err := s.Settings(ctx, steamID)
	if err != nil {
		return nil, err
	}
	settings.TradeURL = tradeURL
	settings.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, apperrors.NewStorageError("save settings", err)
	}
	return settings, nil
}
