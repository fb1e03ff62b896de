package models

import (
	"regexp"
	"time"
)

// ClaimMode determines how winners receive their prize: automated
// trade-bot fulfillment or staff-mediated manual fulfillment.
type ClaimMode string

const (
	ClaimModeBot    ClaimMode = "bot"
	ClaimModeManual ClaimMode = "manual"
)

// ParseClaimMode normalizes a raw claim mode; anything other than
// "manual" is treated as bot, matching stored legacy documents.
func ParseClaimMode(raw string) ClaimMode {
	if raw == string(ClaimModeManual) {
		return ClaimModeManual
	}
	return ClaimModeBot
}

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// IsSteamID reports whether s is a well-formed 17-digit SteamID64.
func IsSteamID(s string) bool {
	return steamIDPattern.MatchString(s)
}

// PrizeItem describes the skin awarded by a giveaway.
type PrizeItem struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	MarketHashName string `json:"market_hash_name,omitempty"`
	Image          string `json:"image,omitempty"`
}

// Giveaway is a timed draw with an entry window, an entry price in
// credits and a winner count.
type Giveaway struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Prize           string     `json:"prize"`
	PrizeItem       *PrizeItem `json:"prize_item,omitempty"`
	PrizeStock      int        `json:"prize_stock"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	CreditsPerEntry int64      `json:"credits_per_entry"`
	WinnerCount     int        `json:"winner_count"`
	ClaimMode       ClaimMode  `json:"claim_mode"`
	DrawnAt         *time.Time `json:"drawn_at,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Hydrated from counters on read, not part of the stored document.
	TotalEntries      int64 `json:"total_entries"`
	TotalParticipants int64 `json:"total_participants"`
}

// IsActiveAt reports whether entries are accepted at the given instant:
// inside [StartAt, EndAt) and not yet drawn.
func (g *Giveaway) IsActiveAt(now time.Time) bool {
	if g.DrawnAt != nil {
		return false
	}
	return !now.Before(g.StartAt) && now.Before(g.EndAt)
}

// GiveawayCreate is the admin payload for creating a giveaway.
type GiveawayCreate struct {
	Title           string     `json:"title" binding:"required,min=3,max=200"`
	Prize           string     `json:"prize" binding:"required,min=1,max=200"`
	PrizeItem       *PrizeItem `json:"prize_item,omitempty"`
	PrizeStock      int        `json:"prize_stock" binding:"min=0"`
	StartAt         time.Time  `json:"start_at" binding:"required"`
	EndAt           time.Time  `json:"end_at" binding:"required"`
	CreditsPerEntry int64      `json:"credits_per_entry" binding:"required,min=1"`
	WinnerCount     int        `json:"winner_count" binding:"required,min=1"`
	ClaimMode       string     `json:"claim_mode"`
}
