package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/middleware"
	"steam-giveaway-backend/internal/features/giveaway/models"
	giveawayservice "steam-giveaway-backend/internal/features/giveaway/service"
	walletservice "steam-giveaway-backend/internal/features/wallet/service"
)

// AdminHandler serves the owner-only management routes.
type AdminHandler struct {
	service   *giveawayservice.GiveawayService
	scheduler *giveawayservice.DrawScheduler
	reroll    *giveawayservice.RerollEngine
	wallet    *walletservice.WalletService
}

func NewAdminHandler(service *giveawayservice.GiveawayService, scheduler *giveawayservice.DrawScheduler, reroll *giveawayservice.RerollEngine, wallet *walletservice.WalletService) *AdminHandler {
	return &AdminHandler{
		service:   service,
		scheduler: scheduler,
		reroll:    reroll,
		wallet:    wallet,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("", h.create)
		giveaways.GET("", h.list)
		giveaways.GET("/:id/entries", h.entries)
		giveaways.GET("/:id/winners", h.winners)
		giveaways.POST("/:id/draw", h.draw)
		giveaways.POST("/:id/reroll", h.rerollWinners)
		giveaways.POST("/:id/prize-stock", h.updatePrizeStock)
	}

	router.POST("/users/:steamId/credits", h.grantCredits)
}

func (h *AdminHandler) create(c *gin.Context) {
	var input models.GiveawayCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	giveaway, err := h.service.Create(c.Request.Context(), &input)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": giveaway})
}

func (h *AdminHandler) list(c *gin.Context) {
	giveaways, err := h.service.List(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": giveaways})
}

func (h *AdminHandler) entries(c *gin.Context) {
	entries, err := h.service.Entries(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func (h *AdminHandler) winners(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": winners})
}

func (h *AdminHandler) draw(c *gin.Context) {
	report, err := h.scheduler.DrawNow(c.Request.Context(), c.Param("id"), "admin:"+middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

type rerollRequest struct {
	Mode           string `json:"mode" binding:"required,oneof=all replace"`
	ReplaceSteamID string `json:"replace_steam_id"`
}

func (h *AdminHandler) rerollWinners(c *gin.Context) {
	var input rerollRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	winners, err := h.reroll.Reroll(c.Request.Context(), c.Param("id"),
		giveawayservice.RerollMode(input.Mode), input.ReplaceSteamID, "admin:"+middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": winners})
}

type prizeStockRequest struct {
	PrizeStock int `json:"prize_stock" binding:"min=0"`
}

func (h *AdminHandler) updatePrizeStock(c *gin.Context) {
	var input prizeStockRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	giveaway, err := h.service.UpdatePrizeStock(c.Request.Context(), c.Param("id"), input.PrizeStock)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": giveaway})
}

type grantCreditsRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1"`
}

func (h *AdminHandler) grantCredits(c *gin.Context) {
	steamID := c.Param("steamId")
	if !models.IsSteamID(steamID) {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("steamId", "must be a 17-digit SteamID64"))
		return
	}

	var input grantCreditsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	balance, err := h.wallet.Grant(c.Request.Context(), steamID, input.Amount, "admin:"+middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"steam_id": steamID, "balance": balance}})
}
