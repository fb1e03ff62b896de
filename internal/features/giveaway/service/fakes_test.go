package service

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/features/giveaway/models"
	"steam-giveaway-backend/internal/features/giveaway/repository"
	"steam-giveaway-backend/internal/platform/lock"
)

type fakeRepo struct {
	mu        sync.Mutex
	giveaways map[string]*models.Giveaway
	entries   map[string]map[string]*models.Entry
	winners   map[string]*models.WinnerSet
	undrawn   map[string]int64

	failAddEntries error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		giveaways: make(map[string]*models.Giveaway),
		entries:   make(map[string]map[string]*models.Entry),
		winners:   make(map[string]*models.WinnerSet),
		undrawn:   make(map[string]int64),
	}
}

func (r *fakeRepo) Create(_ context.Context, g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.giveaways[g.ID] = &cp
	r.undrawn[g.ID] = g.EndAt.Unix()
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *fakeRepo) Update(_ context.Context, g *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.giveaways[g.ID] = &cp
	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]*models.Giveaway, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Giveaway, 0, len(r.giveaways))
	for _, g := range r.giveaways {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) AddEntries(_ context.Context, giveawayID, steamID string, count, credits int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAddEntries != nil {
		return false, r.failAddEntries
	}
	byUser, ok := r.entries[giveawayID]
	if !ok {
		byUser = make(map[string]*models.Entry)
		r.entries[giveawayID] = byUser
	}
	entry, exists := byUser[steamID]
	if !exists {
		byUser[steamID] = &models.Entry{
			GiveawayID:   giveawayID,
			SteamID:      steamID,
			Entries:      count,
			CreditsSpent: credits,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return true, nil
	}
	entry.Entries += count
	entry.CreditsSpent += credits
	entry.UpdatedAt = now
	return false, nil
}

func (r *fakeRepo) GetEntry(_ context.Context, giveawayID, steamID string) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[giveawayID][steamID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeRepo) GetEntries(_ context.Context, giveawayID string) ([]models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Entry, 0, len(r.entries[giveawayID]))
	for _, entry := range r.entries[giveawayID] {
		out = append(out, *entry)
	}
	return out, nil
}

func (r *fakeRepo) GetWeights(_ context.Context, giveawayID string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	weights := make(map[string]int64, len(r.entries[giveawayID]))
	for steamID, entry := range r.entries[giveawayID] {
		weights[steamID] = entry.Entries
	}
	return weights, nil
}

func (r *fakeRepo) TotalEntries(_ context.Context, giveawayID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, entry := range r.entries[giveawayID] {
		total += entry.Entries
	}
	return total, nil
}

func (r *fakeRepo) TotalParticipants(_ context.Context, giveawayID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries[giveawayID])), nil
}

func (r *fakeRepo) DueForDraw(_ context.Context, before time.Time, limit int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type due struct {
		id    string
		score int64
	}
	var dues []due
	for id, score := range r.undrawn {
		if score <= before.Unix() {
			dues = append(dues, due{id, score})
		}
	}
	sort.Slice(dues, func(i, j int) bool { return dues[i].score < dues[j].score })
	ids := make([]string, 0, len(dues))
	for _, d := range dues {
		if int64(len(ids)) >= limit {
			break
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (r *fakeRepo) MarkDrawn(_ context.Context, g *models.Giveaway, ws *models.WinnerSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.winners[g.ID]; exists {
		return repository.ErrAlreadyDrawn
	}
	cpWS := *ws
	r.winners[g.ID] = &cpWS
	cpG := *g
	r.giveaways[g.ID] = &cpG
	delete(r.undrawn, g.ID)
	return nil
}

func (r *fakeRepo) RemoveFromUndrawn(_ context.Context, giveawayID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.undrawn, giveawayID)
	return nil
}

func (r *fakeRepo) GetWinnerSet(_ context.Context, giveawayID string) (*models.WinnerSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.winners[giveawayID]
	if !ok {
		return nil, repository.ErrWinnersNotFound
	}
	cp := *ws
	cp.Winners = append([]models.Winner(nil), ws.Winners...)
	return &cp, nil
}

func (r *fakeRepo) SaveWinnerSet(_ context.Context, ws *models.WinnerSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ws
	cp.Winners = append([]models.Winner(nil), ws.Winners...)
	r.winners[ws.GiveawayID] = &cp
	return nil
}

func (r *fakeRepo) UpdateWinner(_ context.Context, giveawayID, steamID string, mutate func(*models.Winner) error) (*models.WinnerSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.winners[giveawayID]
	if !ok {
		return nil, repository.ErrWinnersNotFound
	}
	winner := ws.Find(steamID)
	if winner == nil {
		return nil, repository.ErrWinnerNotFound
	}
	if err := mutate(winner); err != nil {
		return nil, err
	}
	cp := *ws
	cp.Winners = append([]models.Winner(nil), ws.Winners...)
	return &cp, nil
}

type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	debits   []string
	credits  []string
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: make(map[string]int64)}
}

func (w *fakeWallet) Debit(_ context.Context, steamID string, amount int64, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[steamID] < amount {
		return apperrors.NewInsufficientBalanceError(amount, w.balances[steamID])
	}
	w.balances[steamID] -= amount
	w.debits = append(w.debits, reason)
	return nil
}

func (w *fakeWallet) Credit(_ context.Context, steamID string, amount int64, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[steamID] += amount
	w.credits = append(w.credits, reason)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(_ context.Context, id string) (Unlocker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, lock.ErrNotAcquired
	}
	l.held[id] = true
	return &fakeLease{locker: l, id: id}, nil
}

type fakeLease struct {
	locker *fakeLocker
	id     string
}

func (f *fakeLease) Release(context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.id)
	return nil
}

func (f *fakeLease) Renew(context.Context) error { return nil }

type fakeNotifier struct {
	mu         sync.Mutex
	won        map[string][]string
	removed    map[string][]string
	missingURL map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		won:        make(map[string][]string),
		removed:    make(map[string][]string),
		missingURL: make(map[string][]string),
	}
}

func (n *fakeNotifier) GiveawayWon(_ context.Context, g *models.Giveaway, steamIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.won[g.ID] = append(n.won[g.ID], steamIDs...)
}

func (n *fakeNotifier) WinnerRemoved(_ context.Context, g *models.Giveaway, steamIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed[g.ID] = append(n.removed[g.ID], steamIDs...)
}

func (n *fakeNotifier) MissingTradeURL(_ context.Context, g *models.Giveaway, steamIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.missingURL[g.ID] = append(n.missingURL[g.ID], steamIDs...)
}

// fakeTradeURLs returns a canned trade URL per steam id. Everyone has
// a valid URL unless overridden with set.
type fakeTradeURLs struct {
	mu   sync.Mutex
	urls map[string]string
}

func newFakeTradeURLs() *fakeTradeURLs {
	return &fakeTradeURLs{urls: make(map[string]string)}
}

func (f *fakeTradeURLs) set(steamID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls[steamID] = url
}

func (f *fakeTradeURLs) GetTradeURL(_ context.Context, steamID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if url, ok := f.urls[steamID]; ok {
		return url, nil
	}
	return "https://steamcommunity.com/tradeoffer/new/?partner=123456&token=AbCdEf_12345", nil
}
