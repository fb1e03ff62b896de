package repository

import (
	"context"
	"errors"

	"steam-giveaway-backend/internal/features/claim/models"
)

var (
	ErrClaimNotFound = errors.New("claim not found")
	ErrClaimExists   = errors.New("claim already exists for winner")
)

// ClaimRepository persists manual claims, indexed by giveaway and by
// user.
type ClaimRepository interface {
	// Create stores the claim. At most one claim per (giveaway,
	// winner) pair is allowed; a second returns ErrClaimExists.
	Create(ctx context.Context, claim *models.ManualClaim) error
	GetByID(ctx context.Context, id string) (*models.ManualClaim, error)
	GetByWinner(ctx context.Context, giveawayID, steamID string) (*models.ManualClaim, error)
	ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.ManualClaim, error)
	ListBySteamID(ctx context.Context, steamID string) ([]*models.ManualClaim, error)
	Update(ctx context.Context, claim *models.ManualClaim) error
}
