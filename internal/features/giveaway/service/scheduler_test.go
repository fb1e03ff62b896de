package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steam-giveaway-backend/internal/features/giveaway/models"
)

func schedulerFixture(t *testing.T) (*DrawScheduler, *fakeRepo, *fakeLocker, *fakeNotifier) {
	t.Helper()
	repo := newFakeRepo()
	locker := newFakeLocker()
	notifier := newFakeNotifier()
	drawer := NewDrawerWithSource(rand.NewSource(7))
	sched := NewDrawScheduler(repo, drawer, locker, notifier, newFakeTradeURLs(), 25, 24*time.Hour)
	return sched, repo, locker, notifier
}

func seedGiveaway(t *testing.T, repo *fakeRepo, id string, endAt time.Time, winnerCount int, mode models.ClaimMode) *models.Giveaway {
	t.Helper()
	g := &models.Giveaway{
		ID:              id,
		Title:           "test",
		Prize:           "AK-47 | Redline",
		StartAt:         endAt.Add(-24 * time.Hour),
		EndAt:           endAt,
		CreditsPerEntry: 10,
		WinnerCount:     winnerCount,
		ClaimMode:       mode,
	}
	require.NoError(t, repo.Create(context.Background(), g))
	return g
}

func seedEntries(t *testing.T, repo *fakeRepo, giveawayID string, weights map[string]int64) {
	t.Helper()
	for steamID, count := range weights {
		_, err := repo.AddEntries(context.Background(), giveawayID, steamID, count, count*10, time.Now())
		require.NoError(t, err)
	}
}

func TestRunOnceDrawsDueGiveaway(t *testing.T) {
	sched, repo, _, notifier := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 2, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{
		"76561198000000001": 5,
		"76561198000000002": 3,
		"76561198000000003": 1,
	})

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Drawn)
	assert.Zero(t, report.SkippedLocked)
	assert.Zero(t, report.Errors)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, ws.Winners, 2)
	assert.Equal(t, "cron", ws.PickedBy)
	for _, w := range ws.Winners {
		assert.Equal(t, models.ClaimStatusPending, w.ClaimStatus)
		assert.Positive(t, w.Entries)
		assert.Equal(t, now.Add(24*time.Hour), w.ClaimDeadlineAt)
	}

	g, err := repo.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, g.DrawnAt)

	assert.Len(t, notifier.won["g1"], 2)
}

func TestRunOnceIdempotent(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	first, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Drawn)

	// A drawn giveaway leaves the due index, so a second pass finds
	// nothing.
	second, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Zero(t, second.Scanned)
	assert.Zero(t, second.Drawn)
}

func TestRunOnceSkipsStaleIndexEntry(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	g := seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	// Simulate a crash between MarkDrawn and index cleanup: the
	// winner set exists but the id is still indexed as undrawn.
	ws := BuildWinnerSet(g, []string{"76561198000000001"}, map[string]int64{"76561198000000001": 1}, now, "cron", 24*time.Hour)
	drawn := now
	g.DrawnAt = &drawn
	require.NoError(t, repo.MarkDrawn(context.Background(), g, ws))
	repo.mu.Lock()
	repo.undrawn["g1"] = now.Add(-time.Hour).Unix()
	repo.mu.Unlock()

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedAlreadyDrawn)
	assert.Zero(t, report.Drawn)

	// Index entry is cleaned up.
	repo.mu.Lock()
	_, stillIndexed := repo.undrawn["g1"]
	repo.mu.Unlock()
	assert.False(t, stillIndexed)
}

func TestRunOnceRecoversMissingDrawnStamp(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	g := seedGiveaway(t, repo, "g1", now.Add(-2*time.Hour), 1, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	// Simulate a crash right after the winner set was written: the
	// giveaway record never got its drawn stamp and the id is still
	// indexed as undrawn.
	drawnAt := now.Add(-time.Hour)
	ws := BuildWinnerSet(g, []string{"76561198000000001"}, map[string]int64{"76561198000000001": 1}, drawnAt, "cron", 24*time.Hour)
	repo.mu.Lock()
	repo.winners["g1"] = ws
	repo.mu.Unlock()

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedAlreadyDrawn)
	assert.Zero(t, report.Drawn)

	// The stamp is repaired from the winner set and the index entry
	// is gone, so the giveaway is eligible for the forfeit sweep.
	got, err := repo.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, got.DrawnAt)
	assert.Equal(t, drawnAt, *got.DrawnAt)

	repo.mu.Lock()
	_, stillIndexed := repo.undrawn["g1"]
	repo.mu.Unlock()
	assert.False(t, stillIndexed)
}

func TestRunOnceSkipsLockedGiveaway(t *testing.T) {
	sched, repo, locker, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	// Another process holds the draw lease.
	_, err := locker.Acquire(context.Background(), "g1")
	require.NoError(t, err)

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedLocked)
	assert.Zero(t, report.Drawn)

	_, err = repo.GetWinnerSet(context.Background(), "g1")
	assert.Error(t, err)
}

func TestRunOnceEmptyGiveawayDrawsEmptyWinnerSet(t *testing.T) {
	sched, repo, _, notifier := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 3, models.ClaimModeBot)

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drawn)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, ws.Winners)
	assert.Empty(t, notifier.won["g1"])
}

func TestRunOnceFewerEntrantsThanWinnerSlots(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 5, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{
		"76561198000000001": 1,
		"76561198000000002": 1,
	})

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drawn)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, ws.Winners, 2)
}

func TestRunOnceManualModeInitialStatus(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeManual)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	_, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, ws.Winners, 1)
	assert.Equal(t, models.ClaimStatusManualPend, ws.Winners[0].ClaimStatus)
}

func TestRunOnceIgnoresFutureGiveaways(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "future", now.Add(time.Hour), 1, models.ClaimModeBot)

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestRunOnceBotModeDiscardsWinnersWithoutTradeURL(t *testing.T) {
	repo := newFakeRepo()
	locker := newFakeLocker()
	notifier := newFakeNotifier()
	tradeURLs := newFakeTradeURLs()
	sched := NewDrawScheduler(repo, NewDrawerWithSource(rand.NewSource(7)), locker, notifier, tradeURLs, 25, 24*time.Hour)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 2, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{
		"76561198000000001": 1,
		"76561198000000002": 1,
		"76561198000000003": 1,
	})
	tradeURLs.set("76561198000000002", "")
	tradeURLs.set("76561198000000003", "not a trade url")

	report, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drawn)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, ws.Winners, 1)
	assert.Equal(t, "76561198000000001", ws.Winners[0].SteamID)

	assert.ElementsMatch(t, []string{"76561198000000002", "76561198000000003"}, notifier.missingURL["g1"])
}

func TestRunOnceManualModeIgnoresTradeURLGate(t *testing.T) {
	repo := newFakeRepo()
	tradeURLs := newFakeTradeURLs()
	sched := NewDrawScheduler(repo, NewDrawerWithSource(rand.NewSource(7)), newFakeLocker(), newFakeNotifier(), tradeURLs, 25, 24*time.Hour)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeManual)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})
	tradeURLs.set("76561198000000001", "")

	_, err := sched.RunOnce(context.Background(), "cron", 0)
	require.NoError(t, err)

	ws, err := repo.GetWinnerSet(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, ws.Winners, 1)
}

func TestRunOnceLimitOverride(t *testing.T) {
	sched, repo, _, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-3*time.Hour), 1, models.ClaimModeBot)
	seedGiveaway(t, repo, "g2", now.Add(-2*time.Hour), 1, models.ClaimModeBot)
	seedGiveaway(t, repo, "g3", now.Add(-time.Hour), 1, models.ClaimModeBot)

	report, err := sched.RunOnce(context.Background(), "cron", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Drawn)
}

func TestDrawNowWithoutLease(t *testing.T) {
	sched, repo, locker, _ := schedulerFixture(t)
	now := time.Now().UTC()
	sched.now = func() time.Time { return now }

	seedGiveaway(t, repo, "g1", now.Add(-time.Hour), 1, models.ClaimModeBot)
	seedEntries(t, repo, "g1", map[string]int64{"76561198000000001": 1})

	// A held lease does not block the admin path; the already-drawn
	// barrier is its only guard.
	_, err := locker.Acquire(context.Background(), "g1")
	require.NoError(t, err)

	report, err := sched.DrawNow(context.Background(), "g1", "admin:76561198000000099")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drawn)

	// Repeating it trips the idempotency guard.
	report, err = sched.DrawNow(context.Background(), "g1", "admin:76561198000000099")
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedAlreadyDrawn)
}
