package models

import "time"

// Settings is per-user configuration surfaced on the account page.
// The saved trade URL prefills claim forms.
type Settings struct {
	SteamID   string    `json:"steam_id"`
	TradeURL  string    `json:"trade_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
