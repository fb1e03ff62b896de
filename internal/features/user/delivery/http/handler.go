package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/middleware"
	userservice "steam-giveaway-backend/internal/features/user/service"
	walletservice "steam-giveaway-backend/internal/features/wallet/service"
	"steam-giveaway-backend/internal/service/notifications"
)

// UserHandler serves the authenticated account routes: settings,
// credit balance and notifications.
type UserHandler struct {
	users         *userservice.UserService
	wallet        *walletservice.WalletService
	notifications *notifications.Service
}

func NewUserHandler(users *userservice.UserService, wallet *walletservice.WalletService, notifs *notifications.Service) *UserHandler {
	return &UserHandler{users: users, wallet: wallet, notifications: notifs}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	me := router.Group("/me", middleware.RequireAuth())
	{
		me.GET("/settings", h.settings)
		me.PUT("/settings", h.updateSettings)
		me.GET("/balance", h.balance)
		me.GET("/ledger", h.ledger)
		me.GET("/notifications", h.listNotifications)
	}
}

func (h *UserHandler) settings(c *gin.Context) {
	settings, err := h.users.Settings(c.Request.Context(), middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": settings})
}

type updateSettingsRequest struct {
	TradeURL string `json:"trade_url"`
}

func (h *UserHandler) updateSettings(c *gin.Context) {
	var input updateSettingsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	settings, err := h.users.SetTradeURL(c.Request.Context(), middleware.MustSteamID(c), input.TradeURL)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": settings})
}

func (h *UserHandler) balance(c *gin.Context) {
	balance, err := h.wallet.Balance(c.Request.Context(), middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"balance": balance}})
}

func (h *UserHandler) ledger(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	entries, err := h.wallet.Ledger(c.Request.Context(), middleware.MustSteamID(c), limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func (h *UserHandler) listNotifications(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	items, err := h.notifications.List(c.Request.Context(), middleware.MustSteamID(c), limit)
	if err != nil {
		middleware.RespondError(c, apperrors.NewStorageError("list notifications", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}
