package service

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"steam-giveaway-backend/internal/features/giveaway/models"
)

// ErrEmptyPool is returned when a pick is requested and no entrant
// with positive weight exists.
var ErrEmptyPool = errors.New("no entrants with positive weight")

// Eligibility gates a selected candidate. A candidate failing the gate
// is discarded from the pool and never re-queued, so a draw can return
// fewer winners than requested. A nil Eligibility admits everyone.
type Eligibility func(steamID string) bool

// Drawer selects winners with probability proportional to entry
// counts, without replacement.
type Drawer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawer returns a drawer seeded from the wall clock.
func NewDrawer() *Drawer {
	return NewDrawerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewDrawerWithSource returns a drawer using the given source. Tests
// pass a fixed seed for reproducible picks.
func NewDrawerWithSource(src rand.Source) *Drawer {
	return &Drawer{rng: rand.New(src)}
}

type entrant struct {
	steamID string
	weight  int64
}

// buildPool normalizes the weight map into a deterministically ordered
// slice. Map iteration order must not influence which entrant a given
// random value lands on.
func buildPool(weights map[string]int64) ([]entrant, int64) {
	pool := make([]entrant, 0, len(weights))
	var total int64
	for steamID, w := range weights {
		if w <= 0 || !models.IsSteamID(steamID) {
			continue
		}
		pool = append(pool, entrant{steamID: steamID, weight: w})
		total += w
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].steamID < pool[j].steamID })
	return pool, total
}

// PickOne draws a single entrant from the pool.
func (d *Drawer) PickOne(weights map[string]int64, eligible Eligibility) (string, []string, error) {
	winners, discarded, err := d.PickWinners(weights, 1, eligible)
	if err != nil {
		return "", discarded, err
	}
	if len(winners) == 0 {
		return "", discarded, nil
	}
	return winners[0], discarded, nil
}

// PickWinners draws up to count distinct entrants. Each pick lands in
// [0, remaining total) and walks the cumulative weights; the chosen
// entrant is removed from the pool before the next pick. A pick that
// fails the eligibility gate is removed without becoming a winner and
// reported in discarded. Fewer than count winners result when the
// pool runs out.
func (d *Drawer) PickWinners(weights map[string]int64, count int, eligible Eligibility) (winners, discarded []string, err error) {
	pool, total := buildPool(weights)
	if len(pool) == 0 {
		return nil, nil, ErrEmptyPool
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for len(winners) < count && len(pool) > 0 {
		r := d.rng.Int63n(total)
		for i := range pool {
			r -= pool[i].weight
			if r < 0 {
				picked := pool[i]
				total -= picked.weight
				pool = append(pool[:i], pool[i+1:]...)
				if eligible == nil || eligible(picked.steamID) {
					winners = append(winners, picked.steamID)
				} else {
					discarded = append(discarded, picked.steamID)
				}
				break
			}
		}
	}
	return winners, discarded, nil
}
