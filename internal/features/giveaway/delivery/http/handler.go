package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/middleware"
	giveawayservice "steam-giveaway-backend/internal/features/giveaway/service"
)

// GiveawayHandler serves the public and authenticated user routes for
// browsing and entering giveaways.
type GiveawayHandler struct {
	service *giveawayservice.GiveawayService
}

func NewGiveawayHandler(service *giveawayservice.GiveawayService) *GiveawayHandler {
	return &GiveawayHandler{service: service}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.list)
		giveaways.GET("/:id", h.getByID)
		giveaways.POST("/:id/enter", middleware.RequireAuth(), h.enter)
		giveaways.GET("/:id/my-entry", middleware.RequireAuth(), h.myEntry)
		giveaways.GET("/:id/my-winner", middleware.RequireAuth(), h.myWinner)
	}
}

func (h *GiveawayHandler) list(c *gin.Context) {
	giveaways, err := h.service.List(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": giveaways})
}

func (h *GiveawayHandler) getByID(c *gin.Context) {
	giveaway, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": giveaway})
}

type enterRequest struct {
	Entries int64 `json:"entries" binding:"required"`
}

func (h *GiveawayHandler) enter(c *gin.Context) {
	var input enterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.RespondError(c, apperrors.NewInvalidArgumentError("body", err.Error()))
		return
	}

	entry, err := h.service.Enter(c.Request.Context(), c.Param("id"), middleware.MustSteamID(c), input.Entries)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entry})
}

func (h *GiveawayHandler) myEntry(c *gin.Context) {
	entry, err := h.service.MyEntry(c.Request.Context(), c.Param("id"), middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entry})
}

func (h *GiveawayHandler) myWinner(c *gin.Context) {
	winner, err := h.service.MyWinner(c.Request.Context(), c.Param("id"), middleware.MustSteamID(c))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": winner})
}
