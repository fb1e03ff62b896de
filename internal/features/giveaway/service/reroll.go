package service

import (
	"context"
	"errors"
	"time"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/giveaway/repository"
)

// RerollMode selects how much of the winner set is replaced.
type RerollMode string

const (
	// RerollAll redraws every winner slot.
	RerollAll RerollMode = "all"
	// RerollReplace swaps a single targeted winner for a fresh pick.
	RerollReplace RerollMode = "replace"
)

// RerollEngine replaces some or all winners of a drawn giveaway.
type RerollEngine struct {
	repo        repository.GiveawayRepository
	drawer      *Drawer
	notifier    Notifier
	tradeURLs   TradeURLSource
	claimWindow time.Duration
	now         func() time.Time
}

func NewRerollEngine(repo repository.GiveawayRepository, drawer *Drawer, notifier Notifier, tradeURLs TradeURLSource, claimWindow time.Duration) *RerollEngine {
	return &RerollEngine{
		repo:        repo,
		drawer:      drawer,
		notifier:    notifier,
		tradeURLs:   tradeURLs,
		claimWindow: claimWindow,
		now:         time.Now,
	}
}

// Reroll rebuilds the winner set. Mode "all" redraws every slot over
// the full entrant pool, so a current winner can be re-affirmed; mode
// "replace" swaps only replaceSteamID, keeping the other winners and
// their claim state intact and drawing the replacement from entrants
// not already in the set, so the replaced winner cannot immediately
// win again. Fresh picks get a claim window starting at the reroll,
// not at the original draw. An empty existing set falls back to a
// full fresh draw.
func (e *RerollEngine) Reroll(ctx context.Context, giveawayID string, mode RerollMode, replaceSteamID, actor string) (*models.WinnerSet, error) {
	if mode != RerollAll && mode != RerollReplace {
		return nil, apperrors.NewInvalidArgumentError("mode", "must be \"all\" or \"replace\"")
	}
	if mode == RerollReplace && replaceSteamID == "" {
		return nil, apperrors.NewInvalidArgumentError("replace_steam_id", "required for replace mode")
	}

	giveaway, err := e.repo.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewNotFoundError("giveaway", giveawayID)
		}
		return nil, apperrors.NewStorageError("get giveaway", err)
	}

	winners, err := e.repo.GetWinnerSet(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrWinnersNotFound) {
			return nil, apperrors.NewConflictError("giveaway", "has not been drawn")
		}
		return nil, apperrors.NewStorageError("get winners", err)
	}

	var kept []models.Winner
	var excluded map[string]bool
	targetCount := giveaway.WinnerCount

	switch {
	case len(winners.Winners) == 0:
		// Empty set: fresh draw of the full winner count, nothing to
		// exclude.
	case mode == RerollAll:
		// No exclusions: every entrant competes again, current winners
		// included.
		if n := len(winners.Winners); n < targetCount {
			targetCount = n
		}
	default:
		excluded = currentWinnerSet(winners)
		if !excluded[replaceSteamID] {
			return nil, apperrors.NewInvalidArgumentError("replace_steam_id", replaceSteamID+" is not a current winner")
		}
		for _, w := range winners.Winners {
			if w.SteamID != replaceSteamID {
				kept = append(kept, w)
			}
		}
		if n := len(winners.Winners); n < targetCount {
			targetCount = n
		}
	}

	weights, err := e.repo.GetWeights(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewStorageError("get entries", err)
	}
	for steamID := range excluded {
		delete(weights, steamID)
	}

	var picked, discarded []string
	if drawCount := targetCount - len(kept); drawCount > 0 && len(weights) > 0 {
		picked, discarded, err = e.drawer.PickWinners(weights, drawCount, botModeGate(ctx, giveaway, e.tradeURLs))
		if err != nil && !errors.Is(err, ErrEmptyPool) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "reroll draw failed")
		}
	}

	now := e.now().UTC()
	fresh := BuildWinnerSet(giveaway, picked, weights, now, actor, e.claimWindow)

	oldIDs := winners.SteamIDs()
	winners.Winners = append(kept, fresh.Winners...)
	winners.RerolledAt = &now
	winners.RerolledBy = actor

	if err := e.repo.SaveWinnerSet(ctx, winners); err != nil {
		return nil, apperrors.NewStorageError("save winners", err)
	}

	added, removed := diffWinners(oldIDs, winners.SteamIDs())
	logger.Info().
		Str("giveaway_id", giveawayID).
		Str("mode", string(mode)).
		Str("actor", actor).
		Int("kept", len(kept)).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Msg("winners rerolled")

	if e.notifier != nil {
		if len(added) > 0 {
			e.notifier.GiveawayWon(ctx, giveaway, added)
		}
		// Only the explicitly targeted winner is told they were
		// rerolled out; a full redraw replaces the whole set without
		// singling anyone out.
		if mode == RerollReplace {
			for _, id := range removed {
				if id == replaceSteamID {
					e.notifier.WinnerRemoved(ctx, giveaway, []string{replaceSteamID})
				}
			}
		}
		if len(discarded) > 0 {
			e.notifier.MissingTradeURL(ctx, giveaway, discarded)
		}
	}

	return winners, nil
}

func currentWinnerSet(winners *models.WinnerSet) map[string]bool {
	current := make(map[string]bool, len(winners.Winners))
	for _, w := range winners.Winners {
		current[w.SteamID] = true
	}
	return current
}

// diffWinners returns the symmetric difference of the two id lists.
func diffWinners(oldIDs, newIDs []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = true
	}
	newSet := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = true
	}
	for _, id := range newIDs {
		if !oldSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range oldIDs {
		if !newSet[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
