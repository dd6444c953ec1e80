package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/storage"
	"gigboard_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// FileHandler отдает файлы локального хранилища. Для S3 ссылки ведут в бакет напрямую.
type FileHandler struct {
	*BaseHandler
	storage    storage.Storage
	uploadRepo repositories.UploadRepository
}

func NewFileHandler(base *BaseHandler, storage storage.Storage, uploadRepo repositories.UploadRepository) *FileHandler {
	return &FileHandler{
		BaseHandler: base,
		storage:     storage,
		uploadRepo:  uploadRepo,
	}
}

func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	r.GET("/files/*path", guards.Optional, h.ServeFile)
	r.HEAD("/files/*path", guards.Optional, h.ServeFile)
}

// ServeFile: публичные файлы (медиа опубликованного шоукейса) доступны всем, остальные только владельцу
func (h *FileHandler) ServeFile(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	notFound := apperrors.ErrNotFound(repositories.ErrUploadNotFound)

	upload, err := h.uploadRepo.FindByPath(h.GetDB(c).WithContext(c.Request.Context()), path)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			apperrors.HandleError(c, notFound)
			return
		}
		h.HandleServiceError(c, apperrors.DatabaseError(err))
		return
	}
	if !upload.IsPublic && upload.UserID != h.OptionalUserID(c) {
		// существование приватного файла не раскрываем
		apperrors.HandleError(c, notFound)
		return
	}

	reader, err := h.storage.Get(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			logger.CtxWarn(c.Request.Context(), "upload record without file", "upload_id", upload.ID, "path", path)
			apperrors.HandleError(c, notFound)
			return
		}
		h.HandleServiceError(c, apperrors.InternalError(err))
		return
	}
	defer reader.Close()

	contentType := upload.MimeType
	if path == upload.ThumbnailPath {
		contentType = "image/jpeg"
	}
	c.Header("Content-Type", contentType)
	c.Header("ETag", fmt.Sprintf(`"%s"`, upload.ID))
	if upload.IsPublic {
		c.Header("Cache-Control", "public, max-age=31536000")
	} else {
		c.Header("Cache-Control", "private, no-store")
	}
	c.Header("Content-Disposition", "inline")

	c.Status(http.StatusOK)
	if c.Request.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Error(err)
	}
}
