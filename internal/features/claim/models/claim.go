package models

import (
	"regexp"
	"time"

	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
)

var (
	discordIDPattern = regexp.MustCompile(`^\d{17,20}$`)
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// IsDiscordID reports whether s looks like a Discord user ID, the
// contact identity staff use for manual fulfillment.
func IsDiscordID(s string) bool {
	return discordIDPattern.MatchString(s)
}

// IsEmail is a permissive shape check, not full RFC validation.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ManualClaimStatus is the staff-side state of a manual fulfillment.
type ManualClaimStatus string

const (
	StatusPending      ManualClaimStatus = "pending"
	StatusContacted    ManualClaimStatus = "contacted"
	StatusAwaitingUser ManualClaimStatus = "awaiting_user"
	StatusSent         ManualClaimStatus = "sent"
	StatusCompleted    ManualClaimStatus = "completed"
	StatusRejected     ManualClaimStatus = "rejected"
)

// Valid reports whether s is a known manual claim status.
func (s ManualClaimStatus) Valid() bool {
	switch s {
	case StatusPending, StatusContacted, StatusAwaitingUser, StatusSent, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s ManualClaimStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// CanTransition reports whether s may move to next. Staff may set any
// known status from any non-terminal state, including jumping straight
// to completed; only completed and rejected claims are frozen.
func (s ManualClaimStatus) CanTransition(next ManualClaimStatus) bool {
	return !s.Terminal() && next.Valid()
}

// WinnerStatus maps the staff-side state to the winner-facing claim
// status kept on the winner set.
func (s ManualClaimStatus) WinnerStatus() giveawaymodels.ClaimStatus {
	switch s {
	case StatusContacted:
		return giveawaymodels.ClaimStatusManualCont
	case StatusAwaitingUser:
		return giveawaymodels.ClaimStatusManualAwait
	case StatusSent:
		return giveawaymodels.ClaimStatusManualSent
	case StatusCompleted:
		return giveawaymodels.ClaimStatusClaimed
	case StatusRejected:
		return giveawaymodels.ClaimStatusRejected
	default:
		return giveawaymodels.ClaimStatusManualPend
	}
}

// ManualClaim is a winner's request for staff-mediated prize delivery.
type ManualClaim struct {
	ID          string            `json:"id"`
	GiveawayID  string            `json:"giveaway_id"`
	SteamID     string            `json:"steam_id"`
	TradeURL    string            `json:"trade_url"`
	Contact     string            `json:"contact"`
	Email       string            `json:"email,omitempty"`
	Message     string            `json:"message,omitempty"`
	Status      ManualClaimStatus `json:"status"`
	AdminNote   string            `json:"admin_note,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	RejectedAt  *time.Time        `json:"rejected_at,omitempty"`

	// Staff webhook delivery outcome for the submission event.
	WebhookSentAt    *time.Time `json:"webhook_sent_at,omitempty"`
	LastWebhookError string     `json:"last_webhook_error,omitempty"`
}
