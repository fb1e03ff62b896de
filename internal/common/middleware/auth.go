package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"steam-giveaway-backend/internal/common/config"
)

const sessionCookie = "steam_session"

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// SteamSession validates the signed session cookie and stores the
// caller's Steam ID in the request context. The cookie format is
// "<steamId>.<hex hmac-sha256 of steamId>".
func SteamSession(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.Auth.SessionSecret)

	return func(c *gin.Context) {
		raw, err := c.Cookie(sessionCookie)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		steamID, ok := verifySession(raw, secret)
		if ok {
			c.Set("steam_id", steamID)
		}
		c.Next()
	}
}

func verifySession(raw string, secret []byte) (string, bool) {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	steamID, sig := parts[0], parts[1]
	if !steamIDPattern.MatchString(steamID) {
		return "", false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(steamID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", false
	}
	return steamID, true
}

// SignSession produces a session cookie value for a Steam ID. Used by
// the login flow and by tests.
func SignSession(steamID string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(steamID))
	return steamID + "." + hex.EncodeToString(mac.Sum(nil))
}

// SteamID returns the authenticated caller's Steam ID, if any.
func SteamID(c *gin.Context) (string, bool) {
	v, exists := c.Get("steam_id")
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// MustSteamID returns the caller's Steam ID on routes behind
// RequireAuth.
func MustSteamID(c *gin.Context) string {
	steamID, _ := SteamID(c)
	return steamID
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SteamID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: steam session required"})
			return
		}
		c.Next()
	}
}

// RequireOwner restricts a route to the configured owner Steam IDs.
func RequireOwner(cfg *config.Config) gin.HandlerFunc {
	owners := make(map[string]struct{}, len(cfg.Auth.OwnerSteamIDs))
	for _, id := range cfg.Auth.OwnerSteamIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			owners[id] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		steamID, ok := SteamID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: steam session required"})
			return
		}
		if _, isOwner := owners[steamID]; !isOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// RequireCronSecret guards the scheduler trigger endpoints. Accepts the
// secret as a bearer token or a ?secret= query parameter.
func RequireCronSecret(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := cfg.Auth.CronSecret
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Cron secret not configured"})
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "Bearer "+expected || c.Query("secret") == expected {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}
