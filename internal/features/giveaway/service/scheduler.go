package service

import (
	"context"
	"errors"
	"time"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
	"steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/giveaway/repository"
	"steam-giveaway-backend/internal/platform/lock"
)

// Unlocker is a held lease on one giveaway draw.
type Unlocker interface {
	Release(ctx context.Context) error
	Renew(ctx context.Context) error
}

// Locker hands out per-giveaway draw leases. Acquire returns
// lock.ErrNotAcquired when another process holds the lease.
type Locker interface {
	Acquire(ctx context.Context, id string) (Unlocker, error)
}

type leaseLocker struct {
	manager *lock.Manager
}

// NewLeaseLocker adapts the redis lease manager to the Locker used by
// the scheduler.
func NewLeaseLocker(manager *lock.Manager) Locker {
	return &leaseLocker{manager: manager}
}

func (l *leaseLocker) Acquire(ctx context.Context, id string) (Unlocker, error) {
	lease, err := l.manager.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// DrawReport summarizes one scheduler pass.
type DrawReport struct {
	Scanned             int `json:"scanned"`
	Drawn               int `json:"drawn_count"`
	SkippedLocked       int `json:"skipped_locked_count"`
	SkippedAlreadyDrawn int `json:"skipped_already_drawn_count"`
	Errors              int `json:"error_count"`
}

// DrawScheduler finds giveaways whose entry window has closed and
// draws their winners. Safe to run concurrently from several
// processes: per-giveaway leases and the already-drawn barrier make
// each draw happen exactly once.
type DrawScheduler struct {
	repo        repository.GiveawayRepository
	drawer      *Drawer
	locker      Locker
	notifier    Notifier
	tradeURLs   TradeURLSource
	batchLimit  int64
	claimWindow time.Duration
	now         func() time.Time
}

func NewDrawScheduler(repo repository.GiveawayRepository, drawer *Drawer, locker Locker, notifier Notifier, tradeURLs TradeURLSource, batchLimit int64, claimWindow time.Duration) *DrawScheduler {
	if batchLimit <= 0 {
		batchLimit = 25
	}
	return &DrawScheduler{
		repo:        repo,
		drawer:      drawer,
		locker:      locker,
		notifier:    notifier,
		tradeURLs:   tradeURLs,
		batchLimit:  batchLimit,
		claimWindow: claimWindow,
		now:         time.Now,
	}
}

// RunOnce processes one batch of due giveaways, oldest end time first.
// A non-positive limit falls back to the configured batch size.
// Individual failures are counted and logged; the pass keeps going.
func (s *DrawScheduler) RunOnce(ctx context.Context, pickedBy string, limit int64) (*DrawReport, error) {
	if limit <= 0 {
		limit = s.batchLimit
	}
	now := s.now().UTC()
	ids, err := s.repo.DueForDraw(ctx, now, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("scan due giveaways", err)
	}

	report := &DrawReport{Scanned: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		lease, err := s.locker.Acquire(ctx, id)
		if errors.Is(err, lock.ErrNotAcquired) {
			report.SkippedLocked++
			continue
		}
		if err != nil {
			report.Errors++
			logger.Error().Err(err).Str("giveaway_id", id).Msg("failed to acquire draw lease")
			continue
		}

		s.drawOne(ctx, id, pickedBy, now, report)

		if err := lease.Release(ctx); err != nil {
			logger.Warn().Err(err).Str("giveaway_id", id).Msg("failed to release draw lease")
		}
	}

	logger.Info().
		Int("scanned", report.Scanned).
		Int("drawn", report.Drawn).
		Int("skipped_locked", report.SkippedLocked).
		Int("skipped_already_drawn", report.SkippedAlreadyDrawn).
		Int("errors", report.Errors).
		Msg("draw pass finished")
	return report, nil
}

// DrawNow draws a single giveaway immediately without taking the
// scheduler lease; the already-drawn barrier in MarkDrawn is the only
// guard against racing a concurrent batch pass. The entry window must
// have closed.
func (s *DrawScheduler) DrawNow(ctx context.Context, id, pickedBy string) (*DrawReport, error) {
	giveaway, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, apperrors.NewNotFoundError("giveaway", id)
		}
		return nil, apperrors.NewStorageError("get giveaway", err)
	}

	now := s.now().UTC()
	if now.Before(giveaway.EndAt) {
		return nil, apperrors.NewConflictError("giveaway", "entry window is still open")
	}

	report := &DrawReport{Scanned: 1}
	s.drawOne(ctx, id, pickedBy, now, report)
	return report, nil
}

func (s *DrawScheduler) drawOne(ctx context.Context, id, pickedBy string, now time.Time, report *DrawReport) {
	giveaway, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		// Stale index entry for a deleted giveaway.
		_ = s.repo.RemoveFromUndrawn(ctx, id)
		report.Errors++
		return
	}
	if err != nil {
		report.Errors++
		logger.Error().Err(err).Str("giveaway_id", id).Msg("failed to load giveaway for draw")
		return
	}

	if giveaway.DrawnAt != nil {
		_ = s.repo.RemoveFromUndrawn(ctx, id)
		report.SkippedAlreadyDrawn++
		return
	}

	weights, err := s.repo.GetWeights(ctx, id)
	if err != nil {
		report.Errors++
		logger.Error().Err(err).Str("giveaway_id", id).Msg("failed to load entries for draw")
		return
	}

	var steamIDs, discarded []string
	if len(weights) > 0 {
		steamIDs, discarded, err = s.drawer.PickWinners(weights, giveaway.WinnerCount, s.eligibility(ctx, giveaway))
		if err != nil && !errors.Is(err, ErrEmptyPool) {
			report.Errors++
			logger.Error().Err(err).Str("giveaway_id", id).Msg("draw failed")
			return
		}
	}

	winners := BuildWinnerSet(giveaway, steamIDs, weights, now, pickedBy, s.claimWindow)
	giveaway.DrawnAt = &winners.DrawnAt
	giveaway.UpdatedAt = now

	if err := s.repo.MarkDrawn(ctx, giveaway, winners); err != nil {
		if errors.Is(err, repository.ErrAlreadyDrawn) {
			s.recoverDrawnAt(ctx, giveaway, now)
			_ = s.repo.RemoveFromUndrawn(ctx, id)
			report.SkippedAlreadyDrawn++
			return
		}
		report.Errors++
		logger.Error().Err(err).Str("giveaway_id", id).Msg("failed to persist draw")
		return
	}

	report.Drawn++
	logger.Info().
		Str("giveaway_id", id).
		Int("winners", len(steamIDs)).
		Int("discarded", len(discarded)).
		Str("picked_by", pickedBy).
		Msg("giveaway drawn")

	if s.notifier != nil {
		if len(steamIDs) > 0 {
			s.notifier.GiveawayWon(ctx, giveaway, steamIDs)
		}
		if len(discarded) > 0 {
			s.notifier.MissingTradeURL(ctx, giveaway, discarded)
		}
	}
}

// recoverDrawnAt repairs a giveaway whose winners were persisted but
// whose drawnAt stamp was lost to a crash between the two writes. The
// stamp comes from the existing winner set so the claim window is not
// silently extended.
func (s *DrawScheduler) recoverDrawnAt(ctx context.Context, giveaway *models.Giveaway, now time.Time) {
	existing, err := s.repo.GetWinnerSet(ctx, giveaway.ID)
	if err != nil {
		logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to load winners while recovering drawn stamp")
		return
	}
	giveaway.DrawnAt = &existing.DrawnAt
	giveaway.UpdatedAt = now
	if err := s.repo.Update(ctx, giveaway); err != nil {
		logger.Error().Err(err).Str("giveaway_id", giveaway.ID).Msg("failed to persist recovered drawn stamp")
		return
	}
	logger.Warn().Str("giveaway_id", giveaway.ID).Msg("recovered missing drawn stamp")
}

// eligibility returns the bot mode gate: a selected candidate must
// have a valid saved trade URL for automated fulfillment. Manual mode
// giveaways have no gate.
func (s *DrawScheduler) eligibility(ctx context.Context, giveaway *models.Giveaway) Eligibility {
	return botModeGate(ctx, giveaway, s.tradeURLs)
}

func botModeGate(ctx context.Context, giveaway *models.Giveaway, tradeURLs TradeURLSource) Eligibility {
	if giveaway.ClaimMode != models.ClaimModeBot || tradeURLs == nil {
		return nil
	}
	return func(steamID string) bool {
		url, err := tradeURLs.GetTradeURL(ctx, steamID)
		if err != nil {
			logger.Warn().Err(err).Str("steam_id", steamID).Msg("failed to load trade url, discarding candidate")
			return false
		}
		return models.IsValidTradeURL(url)
	}
}

// BuildWinnerSet assembles a winner set with the initial claim status
// for the giveaway's claim mode. Each winner's claim window opens at
// drawnAt, so reroll picks get a fresh deadline.
func BuildWinnerSet(giveaway *models.Giveaway, steamIDs []string, weights map[string]int64, drawnAt time.Time, pickedBy string, claimWindow time.Duration) *models.WinnerSet {
	initial := models.ClaimStatusPending
	if giveaway.ClaimMode == models.ClaimModeManual {
		initial = models.ClaimStatusManualPend
	}

	deadline := drawnAt.Add(claimWindow)
	winners := make([]models.Winner, 0, len(steamIDs))
	for _, steamID := range steamIDs {
		winners = append(winners, models.Winner{
			SteamID:         steamID,
			Entries:         weights[steamID],
			ClaimStatus:     initial,
			ClaimDeadlineAt: deadline,
		})
	}

	return &models.WinnerSet{
		GiveawayID: giveaway.ID,
		Winners:    winners,
		DrawnAt:    drawnAt,
		PickedBy:   pickedBy,
	}
}
