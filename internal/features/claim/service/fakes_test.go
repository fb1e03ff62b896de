package service

import (
	"context"
	"sync"
	"time"

	"steam-giveaway-backend/internal/features/claim/models"
	claimrepo "steam-giveaway-backend/internal/features/claim/repository"
	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
	giveawayrepo "steam-giveaway-backend/internal/features/giveaway/repository"
)

type fakeClaims struct {
	mu     sync.Mutex
	claims map[string]*models.ManualClaim
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claims: make(map[string]*models.ManualClaim)}
}

func (f *fakeClaims) Create(_ context.Context, claim *models.ManualClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.claims {
		if c.GiveawayID == claim.GiveawayID && c.SteamID == claim.SteamID {
			return claimrepo.ErrClaimExists
		}
	}
	cp := *claim
	f.claims[claim.ID] = &cp
	return nil
}

func (f *fakeClaims) GetByID(_ context.Context, id string) (*models.ManualClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[id]
	if !ok {
		return nil, claimrepo.ErrClaimNotFound
	}
	cp := *claim
	return &cp, nil
}

func (f *fakeClaims) GetByWinner(_ context.Context, giveawayID, steamID string) (*models.ManualClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.claims {
		if c.GiveawayID == giveawayID && c.SteamID == steamID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, claimrepo.ErrClaimNotFound
}

func (f *fakeClaims) ListByGiveaway(_ context.Context, giveawayID string) ([]*models.ManualClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ManualClaim
	for _, c := range f.claims {
		if c.GiveawayID == giveawayID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeClaims) ListBySteamID(_ context.Context, steamID string) ([]*models.ManualClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ManualClaim
	for _, c := range f.claims {
		if c.SteamID == steamID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeClaims) Update(_ context.Context, claim *models.ManualClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *claim
	f.claims[claim.ID] = &cp
	return nil
}

// fakeGiveaways implements the slice of GiveawayRepository the claim
// service touches.
type fakeGiveaways struct {
	mu        sync.Mutex
	giveaways map[string]*giveawaymodels.Giveaway
	winners   map[string]*giveawaymodels.WinnerSet
}

var _ giveawayrepo.GiveawayRepository = (*fakeGiveaways)(nil)

func newFakeGiveaways() *fakeGiveaways {
	return &fakeGiveaways{
		giveaways: make(map[string]*giveawaymodels.Giveaway),
		winners:   make(map[string]*giveawaymodels.WinnerSet),
	}
}

func (f *fakeGiveaways) put(g *giveawaymodels.Giveaway, ws *giveawaymodels.WinnerSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.giveaways[g.ID] = g
	if ws != nil {
		f.winners[g.ID] = ws
	}
}

func (f *fakeGiveaways) Create(_ context.Context, g *giveawaymodels.Giveaway) error {
	f.put(g, nil)
	return nil
}

func (f *fakeGiveaways) GetByID(_ context.Context, id string) (*giveawaymodels.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.giveaways[id]
	if !ok {
		return nil, giveawayrepo.ErrGiveawayNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGiveaways) Update(_ context.Context, g *giveawaymodels.Giveaway) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.giveaways[g.ID] = &cp
	return nil
}

func (f *fakeGiveaways) List(_ context.Context) ([]*giveawaymodels.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*giveawaymodels.Giveaway, 0, len(f.giveaways))
	for _, g := range f.giveaways {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeGiveaways) AddEntries(context.Context, string, string, int64, int64, time.Time) (bool, error) {
	return false, nil
}

func (f *fakeGiveaways) GetEntry(context.Context, string, string) (*giveawaymodels.Entry, error) {
	return nil, nil
}

func (f *fakeGiveaways) GetEntries(context.Context, string) ([]giveawaymodels.Entry, error) {
	return nil, nil
}

func (f *fakeGiveaways) GetWeights(context.Context, string) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeGiveaways) TotalEntries(context.Context, string) (int64, error)      { return 0, nil }
func (f *fakeGiveaways) TotalParticipants(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeGiveaways) DueForDraw(context.Context, time.Time, int64) ([]string, error) {
	return nil, nil
}

func (f *fakeGiveaways) MarkDrawn(_ context.Context, g *giveawaymodels.Giveaway, ws *giveawaymodels.WinnerSet) error {
	f.put(g, ws)
	return nil
}

func (f *fakeGiveaways) RemoveFromUndrawn(context.Context, string) error { return nil }

func (f *fakeGiveaways) GetWinnerSet(_ context.Context, giveawayID string) (*giveawaymodels.WinnerSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.winners[giveawayID]
	if !ok {
		return nil, giveawayrepo.ErrWinnersNotFound
	}
	cp := *ws
	cp.Winners = append([]giveawaymodels.Winner(nil), ws.Winners...)
	return &cp, nil
}

func (f *fakeGiveaways) SaveWinnerSet(_ context.Context, ws *giveawaymodels.WinnerSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *ws
	cp.Winners = append([]giveawaymodels.Winner(nil), ws.Winners...)
	f.winners[ws.GiveawayID] = &cp
	return nil
}

func (f *fakeGiveaways) UpdateWinner(_ context.Context, giveawayID, steamID string, mutate func(*giveawaymodels.Winner) error) (*giveawaymodels.WinnerSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.winners[giveawayID]
	if !ok {
		return nil, giveawayrepo.ErrWinnersNotFound
	}
	winner := ws.Find(steamID)
	if winner == nil {
		return nil, giveawayrepo.ErrWinnerNotFound
	}
	if err := mutate(winner); err != nil {
		return nil, err
	}
	cp := *ws
	cp.Winners = append([]giveawaymodels.Winner(nil), ws.Winners...)
	return &cp, nil
}

type fakeClaimNotifier struct {
	mu        sync.Mutex
	forfeited map[string][]string
}

func newFakeClaimNotifier() *fakeClaimNotifier {
	return &fakeClaimNotifier{forfeited: make(map[string][]string)}
}

func (n *fakeClaimNotifier) GiveawayForfeited(_ context.Context, g *giveawaymodels.Giveaway, steamIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forfeited[g.ID] = append(n.forfeited[g.ID], steamIDs...)
}

type fakeWebhook struct {
	mu        sync.Mutex
	submitted []string
	err       error
}

func (w *fakeWebhook) ManualClaimSubmitted(_ context.Context, _ *giveawaymodels.Giveaway, claim *models.ManualClaim) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.submitted = append(w.submitted, claim.ID)
	return nil
}
