package handlers

import (
	"context"
	"net/http"
	"time"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type GigHandler struct {
	*BaseHandler
	gigService services.GigService
}

func NewGigHandler(base *BaseHandler, gigService services.GigService) *GigHandler {
	return &GigHandler{
		BaseHandler: base,
		gigService:  gigService,
	}
}

func (h *GigHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	public := r.Group("/gigs")
	public.Use(guards.Optional)
	{
		public.GET("", h.ListGigs)
		public.GET("/:gigId", h.GetGig)
	}

	gigs := r.Group("/gigs")
	gigs.Use(guards.Auth)
	{
		gigs.POST("", h.CreateGig)
		gigs.GET("/mine", h.ListMyGigs)
		gigs.POST("/:gigId/publish", h.PublishGig)
		gigs.POST("/:gigId/close", h.CloseApplications)
		gigs.POST("/:gigId/book", h.BookGig)
		gigs.POST("/:gigId/complete", h.CompleteGig)
		gigs.POST("/:gigId/cancel", h.CancelGig)
	}
}

func (h *GigHandler) CreateGig(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateGigRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.OwnerUserID = userID

	gig, err := h.gigService.CreateGig(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewGigResponse(gig, time.Now()))
}

// GetGig: черновик виден только владельцу
func (h *GigHandler) GetGig(c *gin.Context) {
	gig, err := h.gigService.GetGig(c.Request.Context(), h.GetDB(c), c.Param("gigId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if gig.Status == models.GigStatusDraft && !gig.IsOwner(h.OptionalUserID(c)) {
		h.HandleServiceError(c, apperrors.ErrGigNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewGigResponse(gig, time.Now()))
}

func (h *GigHandler) ListGigs(c *gin.Context) {
	var query dto.GigListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	resp, err := h.gigService.ListPublishedGigs(c.Request.Context(), h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GigHandler) ListMyGigs(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.gigService.ListMyGigs(c.Request.Context(), h.GetDB(c), userID, ParsePagination(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GigHandler) PublishGig(c *gin.Context) {
	h.transition(c, h.gigService.PublishGig)
}

func (h *GigHandler) CloseApplications(c *gin.Context) {
	h.transition(c, h.gigService.CloseApplications)
}

func (h *GigHandler) BookGig(c *gin.Context) {
	h.transition(c, h.gigService.BookGig)
}

func (h *GigHandler) CompleteGig(c *gin.Context) {
	h.transition(c, h.gigService.CompleteGig)
}

func (h *GigHandler) CancelGig(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CancelGigRequest
	// тело необязательно
	if c.Request.ContentLength > 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	gig, err := h.gigService.CancelGig(c.Request.Context(), h.GetDB(c), userID, c.Param("gigId"), req.Reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGigResponse(gig, time.Now()))
}

type gigTransition func(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error)

func (h *GigHandler) transition(c *gin.Context, fn gigTransition) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	gig, err := fn(c.Request.Context(), h.GetDB(c), userID, c.Param("gigId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGigResponse(gig, time.Now()))
}
