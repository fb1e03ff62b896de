package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"steam-giveaway-backend/internal/common/middleware"
	claimservice "steam-giveaway-backend/internal/features/claim/service"
	giveawayservice "steam-giveaway-backend/internal/features/giveaway/service"
)

// CronHandler exposes the scheduler passes to an external cron runner.
type CronHandler struct {
	scheduler *giveawayservice.DrawScheduler
	claims    *claimservice.ClaimService
}

func NewCronHandler(scheduler *giveawayservice.DrawScheduler, claims *claimservice.ClaimService) *CronHandler {
	return &CronHandler{scheduler: scheduler, claims: claims}
}

func (h *CronHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/giveaway-draw", h.draw)
	router.GET("/giveaway-claims", h.sweepClaims)
}

// batchLimit parses ?limit=N, clamped to [1, 200]. Zero means "use the
// configured default".
func batchLimit(c *gin.Context) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 1 {
		return 0
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func (h *CronHandler) draw(c *gin.Context) {
	report, err := h.scheduler.RunOnce(c.Request.Context(), "cron", batchLimit(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

func (h *CronHandler) sweepClaims(c *gin.Context) {
	report, err := h.claims.SweepForfeits(c.Request.Context(), batchLimit(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}
