package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gigboard_backend/internal/imageprocessor"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrFileTooLarge         = errors.New("file too large")
	ErrEmptyFile            = errors.New("empty file")
)

var allowedMimeTypes = map[models.MediaKind][]string{
	models.MediaKindImage: {"image/jpeg", "image/png", "image/webp", "image/gif"},
	models.MediaKindVideo: {"video/mp4", "video/quicktime", "video/webm"},
	models.MediaKindPDF:   {"application/pdf"},
}

// StoredMedia - результат загрузки
type StoredMedia struct {
	Kind          models.MediaKind
	Path          string
	ThumbnailPath string
	MimeType      string
	Size          int64
	ExifStripped  bool
	Provider      string
}

// MediaStorage - порт для медиа шоукейсов
type MediaStorage interface {
	UploadImage(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error)
	UploadVideo(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error)
	UploadPdf(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error)
	GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	GetPublicURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
	StripExifData(ctx context.Context, data []byte) ([]byte, error)
}

// MediaService реализует MediaStorage поверх любого Storage
type MediaService struct {
	storage   Storage
	processor *imageprocessor.Processor
	maxSize   int64
}

func NewMediaService(storage Storage, processor *imageprocessor.Processor, maxSize int64) *MediaService {
	return &MediaService{storage: storage, processor: processor, maxSize: maxSize}
}

// DetectKind определяет тип медиа по содержимому, а не по расширению
func DetectKind(data []byte) (models.MediaKind, string, error) {
	mt := mimetype.Detect(data)
	for kind, allowed := range allowedMimeTypes {
		if mimetype.EqualsAny(mt.String(), allowed...) {
			return kind, mt.String(), nil
		}
	}
	return "", mt.String(), fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mt.String())
}

func (m *MediaService) UploadImage(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error) {
	stored, mime, err := m.prepare(data, models.MediaKindImage)
	if err != nil {
		return nil, err
	}

	// GPS и модель камеры не должны утечь в публичную галерею
	if mime == "image/jpeg" || mime == "image/png" {
		clean, err := m.StripExifData(ctx, data)
		if err != nil {
			return nil, err
		}
		data = clean
		stored.ExifStripped = true
		stored.Size = int64(len(data))
	}

	if err := m.put(ctx, stored, ownerID, data); err != nil {
		return nil, err
	}

	thumb, err := m.processor.Thumbnail(bytes.NewReader(data), imageprocessor.SizeThumbnail)
	if err != nil {
		// webp/gif декодером не поддерживаются - превью просто не будет
		logger.CtxWarn(ctx, "thumbnail generation skipped", "path", stored.Path, "error", err.Error())
		return stored, nil
	}
	thumbPath := strings.TrimSuffix(stored.Path, path.Ext(stored.Path)) + "_thumb.jpg"
	if err := m.storage.Save(ctx, thumbPath, bytes.NewReader(thumb), "image/jpeg"); err != nil {
		logger.CtxWarn(ctx, "thumbnail save failed", "path", thumbPath, "error", err.Error())
		return stored, nil
	}
	stored.ThumbnailPath = thumbPath
	return stored, nil
}

func (m *MediaService) UploadVideo(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error) {
	return m.upload(ctx, ownerID, data, models.MediaKindVideo)
}

func (m *MediaService) UploadPdf(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error) {
	return m.upload(ctx, ownerID, data, models.MediaKindPDF)
}

// Upload загружает файл, выбирая тип по содержимому
func (m *MediaService) Upload(ctx context.Context, ownerID string, data []byte) (*StoredMedia, error) {
	kind, _, err := DetectKind(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.MediaKindImage:
		return m.UploadImage(ctx, ownerID, data)
	case models.MediaKindVideo:
		return m.UploadVideo(ctx, ownerID, data)
	default:
		return m.UploadPdf(ctx, ownerID, data)
	}
}

func (m *MediaService) GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return m.storage.GetSignedURL(ctx, path, expiry)
}

func (m *MediaService) GetPublicURL(ctx context.Context, path string) (string, error) {
	return m.storage.GetURL(ctx, path)
}

func (m *MediaService) Delete(ctx context.Context, path string) error {
	return m.storage.Delete(ctx, path)
}

// StripExifData перекодирует JPEG/PNG без метаданных
func (m *MediaService) StripExifData(ctx context.Context, data []byte) ([]byte, error) {
	clean, _, err := m.processor.StripMetadata(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}
	return clean, nil
}

func (m *MediaService) upload(ctx context.Context, ownerID string, data []byte, kind models.MediaKind) (*StoredMedia, error) {
	stored, _, err := m.prepare(data, kind)
	if err != nil {
		return nil, err
	}
	if err := m.put(ctx, stored, ownerID, data); err != nil {
		return nil, err
	}
	return stored, nil
}

func (m *MediaService) prepare(data []byte, want models.MediaKind) (*StoredMedia, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if m.maxSize > 0 && int64(len(data)) > m.maxSize {
		return nil, "", ErrFileTooLarge
	}
	kind, mime, err := DetectKind(data)
	if err != nil {
		return nil, "", err
	}
	if kind != want {
		return nil, "", fmt.Errorf("%w: expected %s, got %s", ErrUnsupportedMediaType, want, mime)
	}
	return &StoredMedia{Kind: kind, MimeType: mime, Size: int64(len(data)), Provider: m.storage.Provider()}, mime, nil
}

func (m *MediaService) put(ctx context.Context, stored *StoredMedia, ownerID string, data []byte) error {
	var ext string
	if mt := mimetype.Lookup(stored.MimeType); mt != nil {
		ext = mt.Extension()
	}
	stored.Path = fmt.Sprintf("%s/%s/%s%s", stored.Kind, ownerID, uuid.NewString(), ext)
	if err := m.storage.Save(ctx, stored.Path, bytes.NewReader(data), stored.MimeType); err != nil {
		return err
	}
	return nil
}
