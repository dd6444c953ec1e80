package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/storage"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// signedURLTTL - срок жизни ссылки на приватный файл
const signedURLTTL = 15 * time.Minute

type UploadService interface {
	// UploadMedia принимает файл любого допустимого типа, ID результата - media_id шоукейса
	UploadMedia(ctx context.Context, db *gorm.DB, userID, originalName string, data []byte) (*dto.UploadResponse, error)
	GetUpload(ctx context.Context, db *gorm.DB, userID, uploadID string) (*dto.UploadResponse, error)
	ListMyUploads(ctx context.Context, db *gorm.DB, userID string, page repositories.Pagination) (*dto.UploadListResponse, error)
	DeleteUpload(ctx context.Context, db *gorm.DB, userID, uploadID string) error
	GetUserStorageUsage(ctx context.Context, db *gorm.DB, userID string) (*dto.StorageUsageResponse, error)
}

type uploadService struct {
	uploadRepo     repositories.UploadRepository
	showcaseRepo   repositories.ShowcaseRepository
	media          storage.MediaStorage
	maxUserStorage int64
}

func NewUploadService(
	uploadRepo repositories.UploadRepository,
	showcaseRepo repositories.ShowcaseRepository,
	media storage.MediaStorage,
	maxUserStorage int64,
) UploadService {
	return &uploadService{
		uploadRepo:     uploadRepo,
		showcaseRepo:   showcaseRepo,
		media:          media,
		maxUserStorage: maxUserStorage,
	}
}

func (s *uploadService) UploadMedia(ctx context.Context, db *gorm.DB, userID, originalName string, data []byte) (*dto.UploadResponse, error) {
	db = db.WithContext(ctx)

	used, err := s.uploadRepo.GetUserStorageUsage(db, userID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if s.maxUserStorage > 0 && used+int64(len(data)) > s.maxUserStorage {
		return nil, apperrors.ErrStorageLimitExceeded
	}

	kind, _, err := storage.DetectKind(data)
	if err != nil {
		return nil, handleUploadError(err)
	}

	var stored *storage.StoredMedia
	switch kind {
	case models.MediaKindImage:
		stored, err = s.media.UploadImage(ctx, userID, data)
	case models.MediaKindVideo:
		stored, err = s.media.UploadVideo(ctx, userID, data)
	default:
		stored, err = s.media.UploadPdf(ctx, userID, data)
	}
	if err != nil {
		return nil, handleUploadError(err)
	}

	upload := &models.Upload{
		UserID:          userID,
		Kind:            stored.Kind,
		Path:            stored.Path,
		ThumbnailPath:   stored.ThumbnailPath,
		MimeType:        stored.MimeType,
		Size:            stored.Size,
		OriginalName:    originalName,
		StorageProvider: stored.Provider,
		ExifStripped:    stored.ExifStripped,
	}
	if upload.URL, err = s.media.GetPublicURL(ctx, stored.Path); err != nil {
		return nil, apperrors.InternalError(err)
	}

	if err := s.uploadRepo.Create(db, upload); err != nil {
		// запись не создалась - файл в хранилище больше никому не нужен
		s.removeFiles(ctx, upload)
		return nil, handleRepoError(err)
	}

	logger.CtxInfo(ctx, "media uploaded", "upload_id", upload.ID, "kind", upload.Kind, "size", upload.Size)
	return s.buildUploadResponse(ctx, upload), nil
}

// GetUpload: публичные файлы видны всем, приватные - только владельцу
func (s *uploadService) GetUpload(ctx context.Context, db *gorm.DB, userID, uploadID string) (*dto.UploadResponse, error) {
	upload, err := s.uploadRepo.FindByID(db.WithContext(ctx), uploadID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !upload.IsPublic && upload.UserID != userID {
		return nil, apperrors.ErrNotFound(repositories.ErrUploadNotFound)
	}
	return s.buildUploadResponse(ctx, upload), nil
}

func (s *uploadService) ListMyUploads(ctx context.Context, db *gorm.DB, userID string, page repositories.Pagination) (*dto.UploadListResponse, error) {
	uploads, total, err := s.uploadRepo.FindByUser(db.WithContext(ctx), userID, page.Normalize())
	if err != nil {
		return nil, handleRepoError(err)
	}
	resp := &dto.UploadListResponse{Uploads: make([]*dto.UploadResponse, 0, len(uploads)), Total: total}
	for i := range uploads {
		resp.Uploads = append(resp.Uploads, s.buildUploadResponse(ctx, &uploads[i]))
	}
	return resp, nil
}

// DeleteUpload удаляет запись, затем файл. Медиа опубликованного шоукейса и шоукейса,
// который еще ждет одобрения, не удаляются.
func (s *uploadService) DeleteUpload(ctx context.Context, db *gorm.DB, userID, uploadID string) error {
	tx, err := beginTx(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upload, err := s.uploadRepo.FindByID(tx, uploadID)
	if err != nil {
		return handleRepoError(err)
	}
	if upload.UserID != userID {
		return apperrors.NewForbiddenError("access denied")
	}
	if upload.IsPublic {
		return apperrors.ErrInvalidOperation("upload", "Media is part of a public showcase")
	}
	if s.showcaseRepo != nil {
		pending, err := s.showcaseRepo.HasUnpublishedWithMedia(tx, userID, uploadID)
		if err != nil {
			return handleRepoError(err)
		}
		if pending {
			return apperrors.ErrInvalidOperation("upload", "Media is part of a showcase awaiting approval")
		}
	}
	if err := s.uploadRepo.Delete(tx, uploadID); err != nil {
		return handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return err
	}

	s.removeFiles(ctx, upload)
	return nil
}

func (s *uploadService) GetUserStorageUsage(ctx context.Context, db *gorm.DB, userID string) (*dto.StorageUsageResponse, error) {
	used, err := s.uploadRepo.GetUserStorageUsage(db.WithContext(ctx), userID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	resp := &dto.StorageUsageResponse{Used: used, Limit: s.maxUserStorage}
	if s.maxUserStorage > 0 {
		resp.Percentage = float64(used) / float64(s.maxUserStorage) * 100
	}
	return resp, nil
}

// removeFiles - запись в БД уже удалена, сбой хранилища только логируем
func (s *uploadService) removeFiles(ctx context.Context, upload *models.Upload) {
	for _, path := range []string{upload.Path, upload.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := s.media.Delete(ctx, path); err != nil {
			logger.CtxWithError(ctx, "failed to delete file from storage", err, "path", path)
		}
	}
}

func (s *uploadService) buildUploadResponse(ctx context.Context, upload *models.Upload) *dto.UploadResponse {
	resp := &dto.UploadResponse{
		ID:           upload.ID,
		Kind:         upload.Kind,
		URL:          upload.URL,
		MimeType:     upload.MimeType,
		Size:         upload.Size,
		IsPublic:     upload.IsPublic,
		ExifStripped: upload.ExifStripped,
		CreatedAt:    upload.CreatedAt,
	}
	// приватные файлы отдаются по временной ссылке
	if !upload.IsPublic {
		if signed, err := s.media.GetSignedURL(ctx, upload.Path, signedURLTTL); err == nil {
			resp.URL = signed
		}
	}
	if upload.ThumbnailPath != "" {
		if url, err := s.media.GetPublicURL(ctx, upload.ThumbnailPath); err == nil {
			resp.ThumbnailURL = url
		}
	}
	return resp
}

func handleUploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedMediaType), errors.Is(err, storage.ErrEmptyFile):
		return apperrors.ErrUnsupportedMedia.WithError(err)
	case errors.Is(err, storage.ErrFileTooLarge):
		return apperrors.ErrFileTooLarge
	}
	return apperrors.Wrap(err, apperrors.CodeExternalServiceError, "storage", "Failed to store file", http.StatusBadGateway)
}
