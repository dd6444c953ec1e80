package repositories

import (
	"errors"
	"time"

	"gigboard_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrApplicationDuplicate = errors.New("application already exists")
)

type ApplicationRepository interface {
	Save(db *gorm.DB, app *models.Application) error
	FindByID(db *gorm.DB, id string) (*models.Application, error)
	FindByGig(db *gorm.DB, gigID string, status *models.ApplicationStatus) ([]models.Application, error)
	FindByApplicant(db *gorm.DB, applicantID string, page Pagination) ([]models.Application, int64, error)
	FindByGigAndApplicant(db *gorm.DB, gigID, applicantID string) (*models.Application, error)
	CountByApplicant(db *gorm.DB, applicantID string, since *time.Time) (int64, error)
	CountByGig(db *gorm.DB, gigID string, status *models.ApplicationStatus) (int64, error)
	Delete(db *gorm.DB, id string) error
}

type ApplicationRepositoryImpl struct{}

func NewApplicationRepository() ApplicationRepository {
	return &ApplicationRepositoryImpl{}
}

// Save создает отклик или меняет его статус. Повтор пары (gig_id, applicant_id) отсекает уникальный индекс.
func (r *ApplicationRepositoryImpl) Save(db *gorm.DB, app *models.Application) error {
	if app.Version == 0 {
		app.Version = 1
		if err := db.Create(app).Error; err != nil {
			app.Version = 0
			if isDuplicateKey(err) {
				return ErrApplicationDuplicate
			}
			return err
		}
		return nil
	}

	err := casUpdate(db, &models.Application{}, app.ID, app.Version, map[string]interface{}{
		"status":     app.Status,
		"note":       app.Note,
		"updated_at": app.UpdatedAt,
	})
	if err != nil {
		return err
	}
	app.Version++
	return nil
}

func (r *ApplicationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Application, error) {
	var app models.Application
	if err := db.First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (r *ApplicationRepositoryImpl) FindByGig(db *gorm.DB, gigID string, status *models.ApplicationStatus) ([]models.Application, error) {
	query := db.Where("gig_id = ?", gigID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var apps []models.Application
	err := query.Order("applied_at ASC").Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepositoryImpl) FindByApplicant(db *gorm.DB, applicantID string, page Pagination) ([]models.Application, int64, error) {
	query := db.Model(&models.Application{}).Where("applicant_id = ?", applicantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []models.Application
	err := query.Order("applied_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&apps).Error
	return apps, total, err
}

func (r *ApplicationRepositoryImpl) FindByGigAndApplicant(db *gorm.DB, gigID, applicantID string) (*models.Application, error) {
	var app models.Application
	err := db.Where("gig_id = ? AND applicant_id = ?", gigID, applicantID).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// CountByApplicant - количество откликов таланта, для месячной квоты передается since
func (r *ApplicationRepositoryImpl) CountByApplicant(db *gorm.DB, applicantID string, since *time.Time) (int64, error) {
	query := db.Model(&models.Application{}).Where("applicant_id = ?", applicantID)
	if since != nil {
		query = query.Where("applied_at >= ?", *since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *ApplicationRepositoryImpl) CountByGig(db *gorm.DB, gigID string, status *models.ApplicationStatus) (int64, error) {
	query := db.Model(&models.Application{}).Where("gig_id = ?", gigID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *ApplicationRepositoryImpl) Delete(db *gorm.DB, id string) error {
	res := db.Delete(&models.Application{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
