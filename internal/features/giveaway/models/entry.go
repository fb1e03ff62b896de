package models

import "time"

// Entry records one participant's purchased entries in a giveaway.
// Keyed by (giveaway, steam id); entries only ever grow and the row is
// never deleted.
type Entry struct {
	GiveawayID   string    `json:"giveaway_id"`
	SteamID      string    `json:"steam_id"`
	Entries      int64     `json:"entries"`
	CreditsSpent int64     `json:"credits_spent"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Entry purchase bounds per request.
const (
	MinEntriesPerPurchase = 1
	MaxEntriesPerPurchase = 100000
)
