package repositories

import (
	"errors"

	"gigboard_backend/internal/models"

	"gorm.io/gorm"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository interface {
	Create(db *gorm.DB, upload *models.Upload) error
	FindByID(db *gorm.DB, id string) (*models.Upload, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.Upload, error)
	FindByPath(db *gorm.DB, path string) (*models.Upload, error)
	FindByUser(db *gorm.DB, userID string, page Pagination) ([]models.Upload, int64, error)
	MarkPublic(db *gorm.DB, ids []string, public bool) error
	Delete(db *gorm.DB, id string) error
	GetUserStorageUsage(db *gorm.DB, userID string) (int64, error)
}

type UploadRepositoryImpl struct{}

func NewUploadRepository() UploadRepository {
	return &UploadRepositoryImpl{}
}

func (r *UploadRepositoryImpl) Create(db *gorm.DB, upload *models.Upload) error {
	return db.Create(upload).Error
}

func (r *UploadRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Upload, error) {
	var upload models.Upload
	if err := db.First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *UploadRepositoryImpl) FindByIDs(db *gorm.DB, ids []string) ([]models.Upload, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var uploads []models.Upload
	err := db.Where("id IN ?", ids).Find(&uploads).Error
	return uploads, err
}

// FindByPath ищет запись по пути файла или его превью
func (r *UploadRepositoryImpl) FindByPath(db *gorm.DB, path string) (*models.Upload, error) {
	var upload models.Upload
	if err := db.Where("path = ? OR thumbnail_path = ?", path, path).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *UploadRepositoryImpl) FindByUser(db *gorm.DB, userID string, page Pagination) ([]models.Upload, int64, error) {
	query := db.Model(&models.Upload{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var uploads []models.Upload
	err := query.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&uploads).Error
	return uploads, total, err
}

// MarkPublic переключает публичность медиа, когда шоукейс публикуется или скрывается
func (r *UploadRepositoryImpl) MarkPublic(db *gorm.DB, ids []string, public bool) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Model(&models.Upload{}).Where("id IN ?", ids).Update("is_public", public).Error
}

func (r *UploadRepositoryImpl) Delete(db *gorm.DB, id string) error {
	res := db.Delete(&models.Upload{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *UploadRepositoryImpl) GetUserStorageUsage(db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.Model(&models.Upload{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	return total, err
}
