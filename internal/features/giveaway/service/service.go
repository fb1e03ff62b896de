package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/giveaway/repository"
)

// CreditWallet debits and credits user balances. Debit returns an
// insufficient-balance error when the user cannot afford the amount.
type CreditWallet interface {
	Debit(ctx context.Context, steamID string, amount int64, reason string) error
	Credit(ctx context.Context, steamID string, amount int64, reason string) error
}

// Notifier delivers best-effort winner notifications. Implementations
// must not fail the calling operation.
type Notifier interface {
	GiveawayWon(ctx context.Context, giveaway *models.Giveaway, steamIDs []string)
	WinnerRemoved(ctx context.Context, giveaway *models.Giveaway, steamIDs []string)
	MissingTradeURL(ctx context.Context, giveaway *models.Giveaway, steamIDs []string)
}

// TradeURLSource resolves a user's saved trade URL for the bot mode
// eligibility gate.
type TradeURLSource interface {
	GetTradeURL(ctx context.Context, steamID string) (string, error)
}

// WinnerView is the user-facing slice of a winner record, with the
// claim deadline applied at read time.
type WinnerView struct {
	GiveawayID    string             `json:"giveaway_id"`
	SteamID       string             `json:"steam_id"`
	Entries       int64              `json:"entries"`
	ClaimStatus   models.ClaimStatus `json:"claim_status"`
	ClaimDeadline time.Time          `json:"claim_deadline"`
	ClaimedAt     *time.Time         `json:"claimed_at,omitempty"`
}

type GiveawayService struct {
	repo     repository.GiveawayRepository
	wallet   CreditWallet
	notifier Notifier
	now      func() time.Time
}

func NewGiveawayService(repo repository.GiveawayRepository, wallet CreditWallet, notifier Notifier) *GiveawayService {
	return &GiveawayService{
		repo:     repo,
		wallet:   wallet,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *GiveawayService) Create(ctx context.Context, input *models.GiveawayCreate) (*models.Giveaway, error) {
	if !input.EndAt.After(input.StartAt) {
		return nil, apperrors.NewInvalidArgumentError("end_at", "must be after start_at")
	}
	if input.PrizeStock > 0 && input.PrizeStock < input.WinnerCount {
		return nil, apperrors.NewInvalidArgumentError("prize_stock", "must cover winner_count")
	}

	now := s.now().UTC()
	giveaway := &models.Giveaway{
		ID:              uuid.NewString(),
		Title:           input.Title,
		Prize:           input.Prize,
		PrizeItem:       input.PrizeItem,
		PrizeStock:      input.PrizeStock,
		StartAt:         input.StartAt.UTC(),
		EndAt:           input.EndAt.UTC(),
		CreditsPerEntry: input.CreditsPerEntry,
		WinnerCount:     input.WinnerCount,
		ClaimMode:       models.ParseClaimMode(input.ClaimMode),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, giveaway); err != nil {
		return nil, apperrors.NewStorageError("create giveaway", err)
	}

	logger.Info().
		Str("giveaway_id", giveaway.ID).
		Str("title", giveaway.Title).
		Int("winner_count", giveaway.WinnerCount).
		Msg("giveaway created")
	return giveaway, nil
}

func (s *GiveawayService) Get(ctx context.Context, id string) (*models.Giveaway, error) {
	giveaway, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewNotFoundError("giveaway", id)
		}
		return nil, apperrors.NewStorageError("get giveaway", err)
	}
	s.hydrateCounters(ctx, giveaway)
	return giveaway, nil
}

func (s *GiveawayService) List(ctx context.Context) ([]*models.Giveaway, error) {
	giveaways, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list giveaways", err)
	}
	for _, g := range giveaways {
		s.hydrateCounters(ctx, g)
	}
	return giveaways, nil
}

func (s *GiveawayService) hydrateCounters(ctx context.Context, g *models.Giveaway) {
	if total, err := s.repo.TotalEntries(ctx, g.ID); err == nil {
		g.TotalEntries = total
	}
	if participants, err := s.repo.TotalParticipants(ctx, g.ID); err == nil {
		g.TotalParticipants = participants
	}
}

// Enter buys count entries for steamID. Credits are debited first; if
// recording the entries then fails the debit is refunded.
func (s *GiveawayService) Enter(ctx context.Context, giveawayID, steamID string, count int64) (*models.Entry, error) {
	if count < models.MinEntriesPerPurchase || count > models.MaxEntriesPerPurchase {
		return nil, apperrors.NewInvalidArgumentError("entries",
			fmt.Sprintf("must be between %d and %d", models.MinEntriesPerPurchase, models.MaxEntriesPerPurchase))
	}

	giveaway, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !giveaway.IsActiveAt(now) {
		return nil, apperrors.NewConflictError("giveaway", "not accepting entries")
	}

	cost := count * giveaway.CreditsPerEntry
	reason := "giveaway_entry:" + giveawayID
	if err := s.wallet.Debit(ctx, steamID, cost, reason); err != nil {
		return nil, err
	}

	first, err := s.repo.AddEntries(ctx, giveawayID, steamID, count, cost, now)
	if err != nil {
		if refundErr := s.wallet.Credit(ctx, steamID, cost, "giveaway_entry_refund:"+giveawayID); refundErr != nil {
			logger.Error().
				Err(refundErr).
				Str("giveaway_id", giveawayID).
				Str("steam_id", steamID).
				Int64("amount", cost).
				Msg("failed to refund entry debit")
		}
		return nil, apperrors.NewStorageError("add entries", err)
	}

	if first {
		logger.Debug().
			Str("giveaway_id", giveawayID).
			Str("steam_id", steamID).
			Msg("new participant")
	}

	entry, err := s.repo.GetEntry(ctx, giveawayID, steamID)
	if err != nil {
		return nil, apperrors.NewStorageError("get entry", err)
	}
	return entry, nil
}

func (s *GiveawayService) MyEntry(ctx context.Context, giveawayID, steamID string) (*models.Entry, error) {
	if _, err := s.Get(ctx, giveawayID); err != nil {
		return nil, err
	}
	entry, err := s.repo.GetEntry(ctx, giveawayID, steamID)
	if err != nil {
		return nil, apperrors.NewStorageError("get entry", err)
	}
	if entry == nil {
		return nil, apperrors.NewNotFoundError("entry", steamID)
	}
	return entry, nil
}

func (s *GiveawayService) Entries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	if _, err := s.Get(ctx, giveawayID); err != nil {
		return nil, err
	}
	entries, err := s.repo.GetEntries(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewStorageError("get entries", err)
	}
	return entries, nil
}

// UpdatePrizeStock adjusts the remaining prize inventory.
func (s *GiveawayService) UpdatePrizeStock(ctx context.Context, giveawayID string, stock int) (*models.Giveaway, error) {
	if stock < 0 {
		return nil, apperrors.NewInvalidArgumentError("prize_stock", "must not be negative")
	}

	giveaway, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	giveaway.PrizeStock = stock
	giveaway.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, giveaway); err != nil {
		return nil, apperrors.NewStorageError("update giveaway", err)
	}
	return giveaway, nil
}

// Winners returns the full winner set with deadline-adjusted statuses.
func (s *GiveawayService) Winners(ctx context.Context, giveawayID string) (*models.WinnerSet, error) {
	winners, err := s.repo.GetWinnerSet(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrWinnersNotFound) {
			return nil, apperrors.NewNotFoundError("winners", giveawayID)
		}
		return nil, apperrors.NewStorageError("get winners", err)
	}

	now := s.now().UTC()
	for i := range winners.Winners {
		w := &winners.Winners[i]
		w.ClaimStatus = effectiveStatus(w.ClaimStatus, now, w.ClaimDeadlineAt)
	}
	return winners, nil
}

// MyWinner returns the caller's winner record, or a not-found error if
// they did not win.
func (s *GiveawayService) MyWinner(ctx context.Context, giveawayID, steamID string) (*WinnerView, error) {
	winners, err := s.repo.GetWinnerSet(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrWinnersNotFound) {
			return nil, apperrors.NewNotFoundError("winners", giveawayID)
		}
		return nil, apperrors.NewStorageError("get winners", err)
	}

	winner := winners.Find(steamID)
	if winner == nil {
		return nil, apperrors.NewNotFoundError("winner", steamID)
	}

	now := s.now().UTC()
	return &WinnerView{
		GiveawayID:    giveawayID,
		SteamID:       steamID,
		Entries:       winner.Entries,
		ClaimStatus:   effectiveStatus(winner.ClaimStatus, now, winner.ClaimDeadlineAt),
		ClaimDeadline: winner.ClaimDeadlineAt,
		ClaimedAt:     winner.ClaimedAt,
	}, nil
}

// effectiveStatus overlays the claim deadline at read time: an
// unclaimed prize past the deadline reads as forfeited even before the
// sweep has persisted it.
func effectiveStatus(status models.ClaimStatus, now, deadline time.Time) models.ClaimStatus {
	if !status.Terminal() && now.After(deadline) {
		return models.ClaimStatusForfeited
	}
	return status
}
