package handlers

import (
	"io"
	"net/http"

	"gigboard_backend/internal/services"
	"gigboard_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// UPLOAD HANDLER
// ============================================

type UploadHandler struct {
	*BaseHandler
	uploadService services.UploadService
	maxSize       int64
}

func NewUploadHandler(base *BaseHandler, uploadService services.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   base,
		uploadService: uploadService,
		maxSize:       maxSize,
	}
}

func (h *UploadHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	uploads := r.Group("/uploads")
	uploads.Use(guards.Auth)
	{
		uploads.POST("", h.UploadFile)
		uploads.GET("/mine", h.GetMyUploads)
		uploads.GET("/storage/usage", h.GetStorageUsage)
		uploads.GET("/:uploadId", h.GetUpload)
		uploads.DELETE("/:uploadId", h.DeleteUpload)
	}
}

// UploadFile - multipart-поле file. Тип определяется по содержимому, а не по имени.
func (h *UploadHandler) UploadFile(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("no file provided"))
		return
	}
	if h.maxSize > 0 && fileHeader.Size > h.maxSize {
		h.HandleServiceError(c, apperrors.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.HandleServiceError(c, apperrors.InternalError(err))
		return
	}
	defer file.Close()

	var reader io.Reader = file
	if h.maxSize > 0 {
		reader = io.LimitReader(file, h.maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("failed to read file: "+err.Error()))
		return
	}

	resp, err := h.uploadService.UploadMedia(c.Request.Context(), h.GetDB(c), userID, fileHeader.Filename, data)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *UploadHandler) GetUpload(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.uploadService.GetUpload(c.Request.Context(), h.GetDB(c), userID, c.Param("uploadId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UploadHandler) GetMyUploads(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.uploadService.ListMyUploads(c.Request.Context(), h.GetDB(c), userID, ParsePagination(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.uploadService.DeleteUpload(c.Request.Context(), h.GetDB(c), userID, c.Param("uploadId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload deleted successfully"})
}

func (h *UploadHandler) GetStorageUsage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	resp, err := h.uploadService.GetUserStorageUsage(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
