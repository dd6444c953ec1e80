package repositories

import (
	"errors"
	"strings"
	"time"

	"gigboard_backend/internal/models"

	"gorm.io/gorm"
)

var ErrGigNotFound = errors.New("gig not found")

type GigRepository interface {
	Save(db *gorm.DB, gig *models.Gig) error
	FindByID(db *gorm.DB, id string) (*models.Gig, error)
	FindByIDForUpdate(db *gorm.DB, id string) (*models.Gig, error)
	FindByOwner(db *gorm.DB, ownerUserID string, page Pagination) ([]models.Gig, int64, error)
	FindPublished(db *gorm.DB, filter GigFilter, page Pagination) ([]models.Gig, int64, error)
	CountByOwner(db *gorm.DB, ownerUserID string, status *models.GigStatus, since *time.Time) (int64, error)
	Delete(db *gorm.DB, id string) error
}

// GigFilter - фильтры публичной ленты гигов
type GigFilter struct {
	CompensationType models.CompensationType
	Location         string
	StartsAfter      *time.Time
	StartsBefore     *time.Time
	// OpenAt оставляет только гиги, дедлайн которых еще не прошел на этот момент
	OpenAt *time.Time
}

type GigRepositoryImpl struct{}

func NewGigRepository() GigRepository {
	return &GigRepositoryImpl{}
}

// Save создает гиг (Version == 0) или обновляет его со сверкой версии
func (r *GigRepositoryImpl) Save(db *gorm.DB, gig *models.Gig) error {
	if gig.Version == 0 {
		gig.Version = 1
		if err := db.Create(gig).Error; err != nil {
			gig.Version = 0
			return err
		}
		return nil
	}

	err := casUpdate(db, &models.Gig{}, gig.ID, gig.Version, map[string]interface{}{
		"title":                gig.Title,
		"description":          gig.Description,
		"compensation_type":    gig.Compensation.Type,
		"compensation_details": gig.Compensation.Details,
		"location_text":        gig.Location.Text,
		"location_latitude":    gig.Location.Latitude,
		"location_longitude":   gig.Location.Longitude,
		"location_radius_km":   gig.Location.RadiusKm,
		"start_time":           gig.StartTime,
		"end_time":             gig.EndTime,
		"application_deadline": gig.ApplicationDeadline,
		"max_applicants":       gig.MaxApplicants,
		"usage_rights":         gig.UsageRights,
		"safety_notes":         gig.SafetyNotes,
		"status":               gig.Status,
		"updated_at":           gig.UpdatedAt,
	})
	if err != nil {
		return err
	}
	gig.Version++
	return nil
}

func (r *GigRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Gig, error) {
	return r.find(db, id)
}

// FindByIDForUpdate блокирует строку гига до конца транзакции
func (r *GigRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.Gig, error) {
	return r.find(lockForUpdate(db), id)
}

func (r *GigRepositoryImpl) find(db *gorm.DB, id string) (*models.Gig, error) {
	var gig models.Gig
	if err := db.First(&gig, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	return &gig, nil
}

func (r *GigRepositoryImpl) FindByOwner(db *gorm.DB, ownerUserID string, page Pagination) ([]models.Gig, int64, error) {
	query := db.Model(&models.Gig{}).Where("owner_user_id = ?", ownerUserID)
	return r.paginate(query, page, "created_at DESC")
}

func (r *GigRepositoryImpl) FindPublished(db *gorm.DB, filter GigFilter, page Pagination) ([]models.Gig, int64, error) {
	query := db.Model(&models.Gig{}).Where("status = ?", models.GigStatusPublished)

	if filter.CompensationType != "" {
		query = query.Where("compensation_type = ?", filter.CompensationType)
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		query = query.Where("LOWER(location_text) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if filter.StartsAfter != nil {
		query = query.Where("start_time >= ?", *filter.StartsAfter)
	}
	if filter.StartsBefore != nil {
		query = query.Where("start_time <= ?", *filter.StartsBefore)
	}
	if filter.OpenAt != nil {
		query = query.Where("application_deadline >= ?", *filter.OpenAt)
	}

	return r.paginate(query, page, "start_time ASC")
}

func (r *GigRepositoryImpl) paginate(query *gorm.DB, page Pagination, order string) ([]models.Gig, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var gigs []models.Gig
	err := query.Order(order).Offset(page.Offset()).Limit(page.Limit()).Find(&gigs).Error
	return gigs, total, err
}

// CountByOwner считает гиги владельца, опционально по статусу и с момента since
func (r *GigRepositoryImpl) CountByOwner(db *gorm.DB, ownerUserID string, status *models.GigStatus, since *time.Time) (int64, error) {
	query := db.Model(&models.Gig{}).Where("owner_user_id = ?", ownerUserID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *GigRepositoryImpl) Delete(db *gorm.DB, id string) error {
	res := db.Delete(&models.Gig{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGigNotFound
	}
	return nil
}
