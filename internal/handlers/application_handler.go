package handlers

import (
	"net/http"
	"strings"

	"gigboard_backend/internal/models"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	*BaseHandler
	applicationService services.ApplicationService
}

func NewApplicationHandler(base *BaseHandler, applicationService services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		BaseHandler:        base,
		applicationService: applicationService,
	}
}

func (h *ApplicationHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	gigs := r.Group("/gigs/:gigId/applications")
	gigs.Use(guards.Auth)
	{
		gigs.POST("", h.ApplyToGig)
		gigs.GET("", h.ListGigApplications)
	}

	apps := r.Group("/applications")
	apps.Use(guards.Auth)
	{
		apps.GET("/mine", h.ListMyApplications)
		apps.PUT("/:applicationId/status", h.ReviewApplication)
	}
}

func (h *ApplicationHandler) ApplyToGig(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ApplyToGigRequest
	if c.Request.ContentLength > 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.GigID = c.Param("gigId")
	req.ApplicantID = userID

	app, err := h.applicationService.ApplyToGig(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewApplicationResponse(app))
}

func (h *ApplicationHandler) ReviewApplication(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ReviewApplicationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	status := models.ApplicationStatus(strings.ToUpper(req.Status))
	app, err := h.applicationService.ReviewApplication(c.Request.Context(), h.GetDB(c), userID, c.Param("applicationId"), status)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewApplicationResponse(app))
}

// ListGigApplications - только для владельца гига, ?status= фильтрует
func (h *ApplicationHandler) ListGigApplications(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var status *models.ApplicationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.ApplicationStatus(strings.ToUpper(raw))
		if !s.IsValid() {
			h.HandleServiceError(c, apperrors.ValidationError(map[string]string{"status": "Unknown application status"}))
			return
		}
		status = &s
	}

	resp, err := h.applicationService.ListGigApplications(c.Request.Context(), h.GetDB(c), userID, c.Param("gigId"), status)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) ListMyApplications(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.applicationService.ListMyApplications(c.Request.Context(), h.GetDB(c), userID, ParsePagination(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
