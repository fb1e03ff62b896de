package repository

import (
	"context"
	"errors"
	"time"

	"steam-giveaway-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrWinnersNotFound  = errors.New("winners not found")
	ErrWinnerNotFound   = errors.New("winner not found")
	ErrAlreadyDrawn     = errors.New("giveaway already drawn")
)

// GiveawayRepository persists giveaways, entry counters and winner
// sets.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	Update(ctx context.Context, giveaway *models.Giveaway) error
	List(ctx context.Context) ([]*models.Giveaway, error)

	// AddEntries atomically adds count entries for steamID and bumps
	// the aggregate counters. It reports whether this was the user's
	// first entry in the giveaway.
	AddEntries(ctx context.Context, giveawayID, steamID string, count, credits int64, now time.Time) (first bool, err error)
	GetEntry(ctx context.Context, giveawayID, steamID string) (*models.Entry, error)
	GetEntries(ctx context.Context, giveawayID string) ([]models.Entry, error)
	// GetWeights returns steam id -> entry count for every participant.
	GetWeights(ctx context.Context, giveawayID string) (map[string]int64, error)
	TotalEntries(ctx context.Context, giveawayID string) (int64, error)
	TotalParticipants(ctx context.Context, giveawayID string) (int64, error)

	// DueForDraw returns ids of undrawn giveaways whose entry window
	// closed at or before the given instant, oldest first.
	DueForDraw(ctx context.Context, before time.Time, limit int64) ([]string, error)
	// MarkDrawn stores the winner set and stamps the giveaway as
	// drawn. Returns ErrAlreadyDrawn if a winner set already exists.
	MarkDrawn(ctx context.Context, giveaway *models.Giveaway, winners *models.WinnerSet) error
	// RemoveFromUndrawn drops a stale id from the undrawn index.
	RemoveFromUndrawn(ctx context.Context, giveawayID string) error
	GetWinnerSet(ctx context.Context, giveawayID string) (*models.WinnerSet, error)
	// SaveWinnerSet overwrites an existing winner set (rerolls).
	SaveWinnerSet(ctx context.Context, winners *models.WinnerSet) error
	// UpdateWinner applies mutate to one winner inside the set under
	// an optimistic transaction and returns the updated set.
	UpdateWinner(ctx context.Context, giveawayID, steamID string, mutate func(*models.Winner) error) (*models.WinnerSet, error)
}
