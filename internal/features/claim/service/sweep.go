package service

import (
	"context"
	"errors"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	claimrepo "steam-giveaway-backend/internal/features/claim/repository"
	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
)

// SweepReport summarizes one forfeit sweep pass.
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Forfeited int `json:"forfeited_count"`
	Archived  int `json:"archived_count"`
	Errors    int `json:"error_count"`
}

// SweepForfeits persists forfeiture for winners whose claim window
// expired without any settlement activity, notifies them, and
// archives giveaways once every winner is settled. Winners a staff
// member is already working on (contacted, awaiting trade, trade
// sent, or with an open manual claim) are left alone. At most limit
// giveaways are swept per pass; non-positive means the default of 25.
// The read-time deadline overlay makes expired wins look forfeited
// immediately; the sweep makes it durable.
func (s *ClaimService) SweepForfeits(ctx context.Context, limit int64) (*SweepReport, error) {
	if limit <= 0 {
		limit = 25
	}
	giveaways, err := s.giveaways.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list giveaways", err)
	}

	now := s.now().UTC()
	report := &SweepReport{}
	for _, giveaway := range giveaways {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if int64(report.Scanned) >= limit {
			break
		}
		if giveaway.DrawnAt == nil || giveaway.ArchivedAt != nil {
			continue
		}

		winners, err := s.giveaways.GetWinnerSet(ctx, giveaway.ID)
		if err != nil {
			report.Errors++
			logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("sweep: failed to load winners")
			continue
		}
		expired := false
		for _, w := range winners.Winners {
			if w.Expired(now) {
				expired = true
				break
			}
		}
		if !expired {
			continue
		}

		report.Scanned++
		s.sweepGiveaway(ctx, giveaway, winners, report)
	}

	logger.Info().
		Int("scanned", report.Scanned).
		Int("forfeited", report.Forfeited).
		Int("archived", report.Archived).
		Int("errors", report.Errors).
		Msg("forfeit sweep finished")
	return report, nil
}

func (s *ClaimService) sweepGiveaway(ctx context.Context, giveaway *giveawaymodels.Giveaway, winners *giveawaymodels.WinnerSet, report *SweepReport) {
	now := s.now().UTC()
	allSettled := true
	var forfeited []string

	for _, winner := range winners.Winners {
		if winner.ClaimStatus.Terminal() {
			continue
		}
		if !winner.Expired(now) || !s.forfeitable(ctx, giveaway.ID, winner, report) {
			allSettled = false
			continue
		}

		_, err := s.giveaways.UpdateWinner(ctx, giveaway.ID, winner.SteamID, func(w *giveawaymodels.Winner) error {
			if w.ClaimStatus.Terminal() {
				return nil
			}
			w.ClaimStatus = giveawaymodels.ClaimStatusForfeited
			w.ForfeitedAt = &now
			return nil
		})
		if err != nil {
			allSettled = false
			report.Errors++
			logger.Error().
				Err(err).
				Str("giveaway_id", giveaway.ID).
				Str("steam_id", winner.SteamID).
				Msg("sweep: failed to forfeit winner")
			continue
		}
		report.Forfeited++
		forfeited = append(forfeited, winner.SteamID)
	}

	if len(forfeited) > 0 && s.notifier != nil {
		s.notifier.GiveawayForfeited(ctx, giveaway, forfeited)
	}

	if allSettled {
		giveaway.ArchivedAt = &now
		giveaway.UpdatedAt = now
		if err := s.giveaways.Update(ctx, giveaway); err != nil {
			report.Errors++
			logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("sweep: failed to archive giveaway")
			return
		}
		report.Archived++
	}
}

// forfeitable reports whether the sweep may forfeit this expired
// winner. Untouched bot-mode wins are fair game, as are manual wins
// that never turned into a claim. A winner with an open manual claim,
// or one a staff member moved past manual_pending, stays with staff.
func (s *ClaimService) forfeitable(ctx context.Context, giveawayID string, winner giveawaymodels.Winner, report *SweepReport) bool {
	switch winner.ClaimStatus {
	case giveawaymodels.ClaimStatusPending:
		return true
	case giveawaymodels.ClaimStatusManualPend:
	default:
		return false
	}

	claim, err := s.claims.GetByWinner(ctx, giveawayID, winner.SteamID)
	if errors.Is(err, claimrepo.ErrClaimNotFound) {
		return true
	}
	if err != nil {
		report.Errors++
		logger.Error().
			Err(err).
			Str("giveaway_id", giveawayID).
			Str("steam_id", winner.SteamID).
			Msg("sweep: failed to load claim")
		return false
	}
	return claim.Status.Terminal()
}
