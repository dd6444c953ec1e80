package helpers

import (
	"fmt"
	"testing"

	"gigboard_backend/database"
	"gigboard_backend/internal/config"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestConfig - конфиг для тестов: sqlite в памяти, синхронная доставка уведомлений
func TestConfig() *config.Config {
	var cfg config.Config
	cfg.Server.Env = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.TTL = 60
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000
	return &cfg
}

// NewTestDB открывает изолированную sqlite-базу в памяти и мигрирует схему.
// Соединение одно: транзакции выполняются строго по очереди.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewTestDBWithConfig(t, TestConfig())
}

func NewTestDBWithConfig(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := database.Open(cfg)
	require.NoError(t, err, "не удалось открыть тестовую БД")
	require.NoError(t, database.AutoMigrate(db), "не удалось выполнить AutoMigrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateProfile создает профиль пользователя с заданными ролями (тариф free)
func CreateProfile(t *testing.T, db *gorm.DB, handle string, roles ...models.Role) *models.UserProfile {
	t.Helper()
	return CreateProfileWithTier(t, db, handle, models.TierFree, roles...)
}

func CreateProfileWithTier(t *testing.T, db *gorm.DB, handle string, tier models.SubscriptionTier, roles ...models.Role) *models.UserProfile {
	t.Helper()

	profile := &models.UserProfile{
		UserID:           "user-" + handle,
		Handle:           handle,
		DisplayName:      handle,
		Email:            handle + "@example.com",
		Roles:            models.NewRoleSet(roles...),
		SubscriptionTier: tier,
	}
	err := repositories.NewUserRepository().Save(db, profile)
	require.NoError(t, err, "не удалось создать профиль %s", handle)
	return profile
}

// CreateUploads создает n записей о загруженных медиа пользователя и возвращает их ID
func CreateUploads(t *testing.T, db *gorm.DB, userID string, n int) []string {
	t.Helper()

	repo := repositories.NewUploadRepository()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		upload := &models.Upload{
			UserID:          userID,
			Kind:            models.MediaKindImage,
			Path:            fmt.Sprintf("image/%s/%d.jpg", userID, i),
			MimeType:        "image/jpeg",
			Size:            1024,
			StorageProvider: "local",
		}
		require.NoError(t, repo.Create(db, upload), "не удалось создать upload")
		ids = append(ids, upload.ID)
	}
	return ids
}
