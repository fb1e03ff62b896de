package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/middleware"
	"steam-giveaway-backend/internal/features/claim/models"
	claimservice "steam-giveaway-backend/internal/features/claim/service"
)

// ClaimHandler serves prize claim routes for winners and the manual
// fulfillment queue for staff.
type ClaimHandler struct {
	service *claimservice.ClaimService
}

func NewClaimHandler(service *claimservice.ClaimService) *ClaimHandler {
	return &ClaimHandler{service: service}
}

// RegisterRoutes mounts the winner-facing claim routes.
func (h *ClaimHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("/:id/claim", middleware.RequireAuth(), h.claim)
		giveaways.POST("/:id/manual-claim", middleware.RequireAuth(), h.manualClaim)
		giveaways.GET("/my-claims", middleware.RequireAuth(), h.myClaims)
	}
}

// RegisterAdminRoutes mounts the staff fulfillment routes.
func (h *ClaimHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/giveaways/:id/manual-claims", h.listByGiveaway)
	router.PATCH("/manual-claims/:claimId", h.updateStatus)
}

type claimRequest struct {
	TradeURL string `json:"trade_url" binding:"required"`
}

func (h *ClaimHandler) claim(c *gin.Context) {
	var input claimRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	winner, err := h.service.ClaimBot(c.Request.Context(), c.Param("id"), middleware.MustSteamID(c), input.TradeURL)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": winner})
}

type manualClaimRequest struct {
	TradeURL string `json:"trade_url" binding:"required"`
	Contact  string `json:"contact" binding:"required,max=20"`
	Email    string `json:"email" binding:"max=254"`
	Message  string `json:"message" binding:"max=2000"`
}

func (h *ClaimHandler) manualClaim(c *gin.Context) {
	var input manualClaimRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	claim, err := h.service.SubmitManual(c.Request.Context(), claimservice.SubmitManualInput{
		GiveawayID: c.Param("id"),
		SteamID:    middleware.MustSteamID(c),
		TradeURL:   input.TradeURL,
		Contact:    input.Contact,
		Email:      input.Email,
		Message:    input.Message,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": claim})
}

func (h *ClaimHandler) myClaims(c *gin.Context) {
	claims, err := h.service.MyClaims(c.Request.Context(), middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": claims})
}

func (h *ClaimHandler) listByGiveaway(c *gin.Context) {
	claims, err := h.service.ListByGiveaway(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": claims})
}

type updateStatusRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"admin_note" binding:"max=2000"`
}

func (h *ClaimHandler) updateStatus(c *gin.Context) {
	var input updateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	claim, err := h.service.UpdateStatus(c.Request.Context(), c.Param("claimId"),
		models.ManualClaimStatus(input.Status), input.AdminNote, "admin:"+middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": claim})
}
