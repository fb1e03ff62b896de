package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/features/claim/models"
	claimrepo "steam-giveaway-backend/internal/features/claim/repository"
	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
	giveawayrepo "steam-giveaway-backend/internal/features/giveaway/repository"
)

// Webhook pushes manual claim events to staff channels. The returned
// error is recorded on the claim but never fails the submission.
type Webhook interface {
	ManualClaimSubmitted(ctx context.Context, giveaway *giveawaymodels.Giveaway, claim *models.ManualClaim) error
}

// Notifier delivers best-effort in-app notifications to winners.
type Notifier interface {
	GiveawayForfeited(ctx context.Context, giveaway *giveawaymodels.Giveaway, steamIDs []string)
}

// SubmitManualInput is a winner's manual claim submission. Contact is
// the winner's Discord ID; Email is optional.
type SubmitManualInput struct {
	GiveawayID string
	SteamID    string
	TradeURL   string
	Contact    string
	Email      string
	Message    string
}

type ClaimService struct {
	claims    claimrepo.ClaimRepository
	giveaways giveawayrepo.GiveawayRepository
	webhook   Webhook
	notifier  Notifier
	now       func() time.Time
}

func NewClaimService(claims claimrepo.ClaimRepository, giveaways giveawayrepo.GiveawayRepository, webhook Webhook, notifier Notifier) *ClaimService {
	return &ClaimService{
		claims:    claims,
		giveaways: giveaways,
		webhook:   webhook,
		notifier:  notifier,
		now:       time.Now,
	}
}

// claimableWinner loads the giveaway and winner set and checks the
// winner may still act on their prize.
func (s *ClaimService) claimableWinner(ctx context.Context, giveawayID, steamID string) (*giveawaymodels.Giveaway, *giveawaymodels.WinnerSet, *giveawaymodels.Winner, error) {
	giveaway, err := s.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, giveawayrepo.ErrGiveawayNotFound) {
			return nil, nil, nil, apperrors.NewNotFoundError("giveaway", giveawayID)
		}
		return nil, nil, nil, apperrors.NewStorageError("get giveaway", err)
	}

	winners, err := s.giveaways.GetWinnerSet(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, giveawayrepo.ErrWinnersNotFound) {
			return nil, nil, nil, apperrors.NewConflictError("giveaway", "has not been drawn")
		}
		return nil, nil, nil, apperrors.NewStorageError("get winners", err)
	}

	winner := winners.Find(steamID)
	if winner == nil {
		return nil, nil, nil, apperrors.NewForbiddenError("you are not a winner of this giveaway")
	}
	if winner.ClaimStatus.Terminal() {
		return nil, nil, nil, apperrors.NewConflictError("claim", "already settled")
	}
	if s.now().UTC().After(winner.ClaimDeadlineAt) {
		return nil, nil, nil, apperrors.NewConflictError("claim", "deadline has passed")
	}
	return giveaway, winners, winner, nil
}

// ClaimBot settles a bot-mode win: the trade URL is recorded and the
// prize is queued for automated delivery.
func (s *ClaimService) ClaimBot(ctx context.Context, giveawayID, steamID, tradeURL string) (*giveawaymodels.Winner, error) {
	if !giveawaymodels.IsValidTradeURL(tradeURL) {
		return nil, apperrors.NewInvalidArgumentError("trade_url", "must be a steamcommunity.com trade offer url")
	}

	giveaway, _, winner, err := s.claimableWinner(ctx, giveawayID, steamID)
	if err != nil {
		return nil, err
	}
	if giveaway.ClaimMode != giveawaymodels.ClaimModeBot {
		return nil, apperrors.NewConflictError("claim", "giveaway uses manual fulfillment")
	}
	if winner.ClaimStatus != giveawaymodels.ClaimStatusPending {
		return nil, apperrors.NewConflictError("claim", "already in progress")
	}

	now := s.now().UTC()
	updated, err := s.giveaways.UpdateWinner(ctx, giveawayID, steamID, func(w *giveawaymodels.Winner) error {
		if w.ClaimStatus != giveawaymodels.ClaimStatusPending {
			return apperrors.NewConflictError("claim", "already in progress")
		}
		w.ClaimStatus = giveawaymodels.ClaimStatusClaimed
		w.ClaimedAt = &now
		w.TradeURL = tradeURL
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.NewStorageError("update winner", err)
	}

	logger.Info().
		Str("giveaway_id", giveawayID).
		Str("steam_id", steamID).
		Msg("prize claimed")

	s.archiveIfSettled(ctx, giveaway, updated)
	return updated.Find(steamID), nil
}

// archiveIfSettled archives the giveaway once no winner remains in a
// pending state. Best effort, errors logged.
func (s *ClaimService) archiveIfSettled(ctx context.Context, giveaway *giveawaymodels.Giveaway, winners *giveawaymodels.WinnerSet) {
	if giveaway.ArchivedAt != nil {
		return
	}
	for _, w := range winners.Winners {
		if w.ClaimStatus == giveawaymodels.ClaimStatusPending {
			return
		}
	}

	now := s.now().UTC()
	giveaway.ArchivedAt = &now
	giveaway.UpdatedAt = now
	if err := s.giveaways.Update(ctx, giveaway); err != nil {
		logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to archive settled giveaway")
		return
	}
	logger.Info().Str("giveaway_id", giveaway.ID).Msg("giveaway archived, all claims settled")
}

// SubmitManual opens a manual fulfillment request for a manual-mode
// win. One request per winner.
func (s *ClaimService) SubmitManual(ctx context.Context, input SubmitManualInput) (*models.ManualClaim, error) {
	if !giveawaymodels.IsValidTradeURL(input.TradeURL) {
		return nil, apperrors.NewInvalidArgumentError("trade_url", "must be a steamcommunity.com trade offer url")
	}
	if !models.IsDiscordID(input.Contact) {
		return nil, apperrors.NewInvalidArgumentError("contact", "must be a discord user id")
	}
	if input.Email != "" && !models.IsEmail(input.Email) {
		return nil, apperrors.NewInvalidArgumentError("email", "must be a valid email address")
	}

	giveaway, _, _, err := s.claimableWinner(ctx, input.GiveawayID, input.SteamID)
	if err != nil {
		return nil, err
	}
	if giveaway.ClaimMode != giveawaymodels.ClaimModeManual {
		return nil, apperrors.NewConflictError("claim", "giveaway uses automated fulfillment")
	}

	now := s.now().UTC()
	claim := &models.ManualClaim{
		ID:         uuid.NewString(),
		GiveawayID: input.GiveawayID,
		SteamID:    input.SteamID,
		TradeURL:   input.TradeURL,
		Contact:    input.Contact,
		Email:      input.Email,
		Message:    input.Message,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		if errors.Is(err, claimrepo.ErrClaimExists) {
			// Resubmission returns the queued claim unchanged.
			existing, getErr := s.claims.GetByWinner(ctx, input.GiveawayID, input.SteamID)
			if getErr != nil {
				return nil, apperrors.NewStorageError("get claim", getErr)
			}
			return existing, nil
		}
		return nil, apperrors.NewStorageError("create claim", err)
	}

	logger.Info().
		Str("claim_id", claim.ID).
		Str("giveaway_id", claim.GiveawayID).
		Str("steam_id", claim.SteamID).
		Msg("manual claim submitted")

	if s.webhook != nil {
		if err := s.webhook.ManualClaimSubmitted(ctx, giveaway, claim); err != nil {
			claim.LastWebhookError = err.Error()
			logger.Warn().Err(err).Str("claim_id", claim.ID).Msg("staff webhook delivery failed")
		} else {
			sentAt := s.now().UTC()
			claim.WebhookSentAt = &sentAt
		}
		if err := s.claims.Update(ctx, claim); err != nil {
			logger.Warn().Err(err).Str("claim_id", claim.ID).Msg("failed to record webhook outcome")
		}
	}
	return claim, nil
}

// UpdateStatus moves a manual claim through the fulfillment flow and
// mirrors the new state onto the winner record. Unknown statuses are
// rejected outright; known but illegal transitions conflict.
func (s *ClaimService) UpdateStatus(ctx context.Context, claimID string, next models.ManualClaimStatus, adminNote, actor string) (*models.ManualClaim, error) {
	if !next.Valid() {
		return nil, apperrors.NewInvalidArgumentError("status", "unknown status "+string(next))
	}

	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, claimrepo.ErrClaimNotFound) {
			return nil, apperrors.NewNotFoundError("claim", claimID)
		}
		return nil, apperrors.NewStorageError("get claim", err)
	}

	if !claim.Status.CanTransition(next) {
		return nil, apperrors.NewConflictError("claim",
			"cannot transition from "+string(claim.Status)+" to "+string(next))
	}

	now := s.now().UTC()
	claim.Status = next
	claim.UpdatedAt = now
	switch next {
	case models.StatusCompleted:
		claim.CompletedAt = &now
	case models.StatusRejected:
		claim.RejectedAt = &now
	}
	if adminNote != "" {
		claim.AdminNote = adminNote
	}

	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, apperrors.NewStorageError("update claim", err)
	}

	// Mirror onto the winner set. The claim record is authoritative
	// for manual flow; the winner copy drives the user-facing status.
	_, err = s.giveaways.UpdateWinner(ctx, claim.GiveawayID, claim.SteamID, func(w *giveawaymodels.Winner) error {
		w.ClaimStatus = next.WinnerStatus()
		if next == models.StatusCompleted {
			w.ClaimedAt = &now
		}
		return nil
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("claim_id", claimID).
			Str("giveaway_id", claim.GiveawayID).
			Msg("failed to mirror claim status onto winner")
	}

	logger.Info().
		Str("claim_id", claimID).
		Str("status", string(next)).
		Str("actor", actor).
		Msg("manual claim status updated")
	return claim, nil
}

// MyClaims returns the caller's claims, dropping open claims whose
// winner deadline has lapsed; the sweep will forfeit those shortly.
func (s *ClaimService) MyClaims(ctx context.Context, steamID string) ([]*models.ManualClaim, error) {
	claims, err := s.claims.ListBySteamID(ctx, steamID)
	if err != nil {
		return nil, apperrors.NewStorageError("list claims", err)
	}

	now := s.now().UTC()
	sets := make(map[string]*giveawaymodels.WinnerSet)
	active := make([]*models.ManualClaim, 0, len(claims))
	for _, claim := range claims {
		if claim.Status.Terminal() {
			active = append(active, claim)
			continue
		}
		winners, ok := sets[claim.GiveawayID]
		if !ok {
			winners, err = s.giveaways.GetWinnerSet(ctx, claim.GiveawayID)
			if err != nil {
				logger.Warn().Err(err).Str("giveaway_id", claim.GiveawayID).Msg("failed to load winners for deadline check")
				active = append(active, claim)
				continue
			}
			sets[claim.GiveawayID] = winners
		}
		if winner := winners.Find(claim.SteamID); winner != nil && now.After(winner.ClaimDeadlineAt) {
			continue
		}
		active = append(active, claim)
	}
	return active, nil
}

func (s *ClaimService) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.ManualClaim, error) {
	claims, err := s.claims.ListByGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewStorageError("list claims", err)
	}
	return claims, nil
}
