package models

import "time"

// ClaimStatus is the winner-side claim state surfaced to users.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusClaimed     ClaimStatus = "claimed"
	ClaimStatusForfeited   ClaimStatus = "forfeited"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusManualPend  ClaimStatus = "manual_pending"
	ClaimStatusManualCont  ClaimStatus = "manual_contacted"
	ClaimStatusManualAwait ClaimStatus = "manual_awaiting_user"
	ClaimStatusManualSent  ClaimStatus = "manual_sent"
)

// Terminal reports whether no further claim transitions are possible.
func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimStatusClaimed, ClaimStatusForfeited, ClaimStatusRejected:
		return true
	}
	return false
}

// Winner is a single drawn winner inside a WinnerSet. The claim
// deadline is per winner, not per set: a winner added by a reroll
// gets a fresh window starting at the reroll, not at the original
// draw.
type Winner struct {
	SteamID         string      `json:"steam_id"`
	Entries         int64       `json:"entries"`
	ClaimStatus     ClaimStatus `json:"claim_status"`
	ClaimDeadlineAt time.Time   `json:"claim_deadline_at"`
	ClaimedAt       *time.Time  `json:"claimed_at,omitempty"`
	ForfeitedAt     *time.Time  `json:"forfeited_at,omitempty"`
	TradeURL        string      `json:"trade_url,omitempty"`
}

// WinnerSet is the immutable-membership record of a completed draw.
// Winners are replaced only through a reroll, which rewrites the whole
// set; claim statuses mutate in place.
type WinnerSet struct {
	GiveawayID string     `json:"giveaway_id"`
	Winners    []Winner   `json:"winners"`
	DrawnAt    time.Time  `json:"drawn_at"`
	PickedBy   string     `json:"picked_by"`
	RerolledAt *time.Time `json:"rerolled_at,omitempty"`
	RerolledBy string     `json:"rerolled_by,omitempty"`
}

// Find returns the winner entry for the given steam id, or nil.
func (ws *WinnerSet) Find(steamID string) *Winner {
	for i := range ws.Winners {
		if ws.Winners[i].SteamID == steamID {
			return &ws.Winners[i]
		}
	}
	return nil
}

// SteamIDs returns the winner steam ids in draw order.
func (ws *WinnerSet) SteamIDs() []string {
	ids := make([]string, 0, len(ws.Winners))
	for _, w := range ws.Winners {
		ids = append(ids, w.SteamID)
	}
	return ids
}

// Expired reports whether the winner's claim window has lapsed without
// the claim reaching a terminal state.
func (w *Winner) Expired(now time.Time) bool {
	return !w.ClaimStatus.Terminal() && now.After(w.ClaimDeadlineAt)
}
