package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gigboard_backend/internal/config"
)

var ErrFileNotFound = errors.New("file not found")

// Storage - низкоуровневое хранилище файлов по относительному пути
type Storage interface {
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)

	// GetURL возвращает публичный URL файла
	GetURL(ctx context.Context, path string) (string, error)

	// GetSignedURL возвращает временную ссылку на приватный файл
	GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	GetSize(ctx context.Context, path string) (int64, error)

	// Provider - имя бэкенда для колонки storage_provider
	Provider() string
}

// NewStorage выбирает бэкенд по storage.type. R2 и MinIO работают через s3 с endpoint.
func NewStorage(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Type {
	case "", "local":
		return NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	case "s3", "r2", "cloudflare_r2":
		return NewS3Storage(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
