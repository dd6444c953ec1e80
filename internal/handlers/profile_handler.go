package handlers

import (
	"net/http"
	"strings"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	*BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(base *BaseHandler, profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    base,
		profileService: profileService,
	}
}

func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	r.GET("/profiles/by-handle/:handle", h.GetProfileByHandle)

	me := r.Group("/profiles/me")
	me.Use(guards.Auth)
	{
		me.GET("", h.GetMyProfile)
		me.PUT("", h.UpsertMyProfile)
	}

	admin := r.Group("/admin/profiles")
	admin.Use(guards.Auth, guards.Admin)
	{
		admin.PUT("/:userId/tier", h.SetSubscriptionTier)
	}
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.profileService.GetMyProfile(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfileHandler) UpsertMyProfile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpsertProfileRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.profileService.UpsertMyProfile(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfileHandler) GetProfileByHandle(c *gin.Context) {
	resp, err := h.profileService.GetProfileByHandle(c.Request.Context(), h.GetDB(c), c.Param("handle"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProfileHandler) SetSubscriptionTier(c *gin.Context) {
	var req dto.SetTierRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	tier := models.SubscriptionTier(strings.ToLower(req.Tier))
	resp, err := h.profileService.SetSubscriptionTier(c.Request.Context(), h.GetDB(c), c.Param("userId"), tier)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
