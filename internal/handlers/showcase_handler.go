package handlers

import (
	"net/http"

	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ShowcaseHandler struct {
	*BaseHandler
	showcaseService services.ShowcaseService
}

func NewShowcaseHandler(base *BaseHandler, showcaseService services.ShowcaseService) *ShowcaseHandler {
	return &ShowcaseHandler{
		BaseHandler:     base,
		showcaseService: showcaseService,
	}
}

func (h *ShowcaseHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	// шоукейсы до публикации видят только участники, поэтому токен разбирается и здесь
	r.GET("/showcases/:showcaseId", guards.Optional, h.GetShowcase)
	r.GET("/gigs/:gigId/showcases", guards.Optional, h.ListGigShowcases)

	showcases := r.Group("/showcases")
	showcases.Use(guards.Auth)
	{
		showcases.POST("", h.CreateShowcase)
		showcases.POST("/:showcaseId/approvals", h.ApproveShowcase)
		showcases.PUT("/:showcaseId", h.ResubmitShowcase)
	}
}

func (h *ShowcaseHandler) CreateShowcase(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateShowcaseRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.CreatorID = userID

	showcase, err := h.showcaseService.CreateShowcase(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewShowcaseResponse(showcase))
}

// ApproveShowcase - голос участника: approve или request_changes с обязательной заметкой
func (h *ShowcaseHandler) ApproveShowcase(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ApproveShowcaseRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.ShowcaseID = c.Param("showcaseId")
	req.UserID = userID

	showcase, err := h.showcaseService.ApproveShowcase(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewShowcaseResponse(showcase))
}

func (h *ShowcaseHandler) ResubmitShowcase(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ResubmitShowcaseRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	showcase, err := h.showcaseService.ResubmitShowcase(c.Request.Context(), h.GetDB(c), userID, c.Param("showcaseId"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewShowcaseResponse(showcase))
}

func (h *ShowcaseHandler) GetShowcase(c *gin.Context) {
	showcase, err := h.showcaseService.GetShowcase(c.Request.Context(), h.GetDB(c), h.OptionalUserID(c), c.Param("showcaseId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewShowcaseResponse(showcase))
}

func (h *ShowcaseHandler) ListGigShowcases(c *gin.Context) {
	list, err := h.showcaseService.ListGigShowcases(c.Request.Context(), h.GetDB(c), h.OptionalUserID(c), c.Param("gigId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	resp := make([]*dto.ShowcaseResponse, 0, len(list))
	for i := range list {
		resp = append(resp, dto.NewShowcaseResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"showcases": resp, "total": len(resp)})
}
