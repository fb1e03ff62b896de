package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"steam-giveaway-backend/internal/common/logger"
	claimmodels "steam-giveaway-backend/internal/features/claim/models"
	giveawaymodels "steam-giveaway-backend/internal/features/giveaway/models"
)

const (
	keyPrefixNotifications = "notifications:"
	maxStoredPerUser       = 100
	webhookTimeout         = 5 * time.Second
)

// Notification is an in-app message shown on the user's account page.
type Notification struct {
	ID         string    `json:"id"`
	SteamID    string    `json:"steam_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	GiveawayID string    `json:"giveaway_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service stores in-app notifications and pushes staff alerts to a
// webhook. Every method is best effort: delivery failures are logged
// and never propagate to the caller.
type Service struct {
	client     redis.UniversalClient
	httpClient *http.Client
	webhookURL string
	now        func() time.Time
}

func NewService(client redis.UniversalClient, webhookURL string) *Service {
	return &Service{
		client:     client,
		httpClient: &http.Client{Timeout: webhookTimeout},
		webhookURL: webhookURL,
		now:        time.Now,
	}
}

func (s *Service) push(ctx context.Context, n *Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal notification")
		return
	}

	key := keyPrefixNotifications + n.SteamID
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxStoredPerUser-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("steam_id", n.SteamID).
			Str("type", n.Type).
			Msg("failed to store notification")
	}
}

// GiveawayWon records a win notification for each new winner.
func (s *Service) GiveawayWon(ctx context.Context, giveaway *giveawaymodels.Giveaway, steamIDs []string) {
	now := s.now().UTC()
	for _, steamID := range steamIDs {
		s.push(ctx, &Notification{
			ID:         uuid.NewString(),
			SteamID:    steamID,
			Type:       "giveaway_won",
			Title:      "You won!",
			Body:       fmt.Sprintf("You won %s in %q. Claim your prize within 24 hours.", giveaway.Prize, giveaway.Title),
			GiveawayID: giveaway.ID,
			CreatedAt:  now,
		})
	}
}

// WinnerRemoved records a removal notification for rerolled-out
// winners.
func (s *Service) WinnerRemoved(ctx context.Context, giveaway *giveawaymodels.Giveaway, steamIDs []string) {
	now := s.now().UTC()
	for _, steamID := range steamIDs {
		s.push(ctx, &Notification{
			ID:         uuid.NewString(),
			SteamID:    steamID,
			Type:       "giveaway_rerolled",
			Title:      "Winner selection updated",
			Body:       fmt.Sprintf("The winner list of %q was redrawn and your win was withdrawn.", giveaway.Title),
			GiveawayID: giveaway.ID,
			CreatedAt:  now,
		})
	}
}

// MissingTradeURL tells entrants that they were drawn but dropped for
// lacking a trade URL, so they can fix it before the next giveaway.
func (s *Service) MissingTradeURL(ctx context.Context, giveaway *giveawaymodels.Giveaway, steamIDs []string) {
	now := s.now().UTC()
	for _, steamID := range steamIDs {
		s.push(ctx, &Notification{
			ID:         uuid.NewString(),
			SteamID:    steamID,
			Type:       "giveaway_missing_trade_url",
			Title:      "Add your trade URL",
			Body:       fmt.Sprintf("You were drawn in %q but skipped because no valid trade URL is saved on your account.", giveaway.Title),
			GiveawayID: giveaway.ID,
			CreatedAt:  now,
		})
	}
}

// GiveawayForfeited tells winners their claim window lapsed and the
// prize was forfeited.
func (s *Service) GiveawayForfeited(ctx context.Context, giveaway *giveawaymodels.Giveaway, steamIDs []string) {
	now := s.now().UTC()
	for _, steamID := range steamIDs {
		s.push(ctx, &Notification{
			ID:         uuid.NewString(),
			SteamID:    steamID,
			Type:       "giveaway_forfeited",
			Title:      "Claim window expired",
			Body:       fmt.Sprintf("Your win in %q was forfeited because the prize was not claimed in time.", giveaway.Title),
			GiveawayID: giveaway.ID,
			CreatedAt:  now,
		})
	}
}

// ManualClaimSubmitted posts a staff alert for a fresh manual claim.
// The returned error lets the caller record delivery outcome; an
// unconfigured webhook counts as delivered.
func (s *Service) ManualClaimSubmitted(ctx context.Context, giveaway *giveawaymodels.Giveaway, claim *claimmodels.ManualClaim) error {
	if s.webhookURL == "" {
		return nil
	}

	payload := map[string]string{
		"content": fmt.Sprintf("Manual claim for %q: winner %s, discord %s, claim %s", giveaway.Title, claim.SteamID, claim.Contact, claim.ID),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// List returns the user's most recent notifications.
func (s *Service) List(ctx context.Context, steamID string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > maxStoredPerUser {
		limit = 20
	}
	raw, err := s.client.LRange(ctx, keyPrefixNotifications+steamID, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}
