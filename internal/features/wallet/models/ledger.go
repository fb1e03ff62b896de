package models

import "time"

// LedgerEntry is one credit movement on a user's balance. Amount is
// signed: positive for credits, negative for debits.
type LedgerEntry struct {
	ID        string    `json:"id"`
	SteamID   string    `json:"steam_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
