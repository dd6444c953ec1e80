package dto

import (
	"time"

	"gigboard_backend/internal/models"
)

// UploadResponse - загруженный медиафайл; ID используется как media_id шоукейса
type UploadResponse struct {
	ID           string           `json:"id"`
	Kind         models.MediaKind `json:"kind"`
	URL          string           `json:"url"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	MimeType     string           `json:"mime_type"`
	Size         int64            `json:"size"`
	IsPublic     bool             `json:"is_public"`
	ExifStripped bool             `json:"exif_stripped"`
	CreatedAt    time.Time        `json:"created_at"`
}

type UploadListResponse struct {
	Uploads []*UploadResponse `json:"uploads"`
	Total   int64             `json:"total"`
}

// StorageUsageResponse - информация об использовании хранилища
type StorageUsageResponse struct {
	Used       int64   `json:"used"`
	Limit      int64   `json:"limit"`
	Percentage float64 `json:"percentage"`
}
