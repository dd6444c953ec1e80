package repositories

import (
	"errors"
	"time"

	"gigboard_backend/internal/models"

	"gorm.io/gorm"
)

var ErrShowcaseNotFound = errors.New("showcase not found")

type ShowcaseRepository interface {
	Save(db *gorm.DB, showcase *models.Showcase) error
	FindByID(db *gorm.DB, id string) (*models.Showcase, error)
	FindByIDForUpdate(db *gorm.DB, id string) (*models.Showcase, error)
	FindByGig(db *gorm.DB, gigID string) ([]models.Showcase, error)
	FindByCreator(db *gorm.DB, creatorID string, page Pagination) ([]models.Showcase, int64, error)
	FindByTalent(db *gorm.DB, talentID string, page Pagination) ([]models.Showcase, int64, error)
	CountByUser(db *gorm.DB, userID string, visibility *models.Visibility) (int64, error)
	CountByUserThisMonth(db *gorm.DB, userID string, visibility *models.Visibility, now time.Time) (int64, error)
	HasUnpublishedWithMedia(db *gorm.DB, partyID, mediaID string) (bool, error)
	Delete(db *gorm.DB, id string) error
}

type ShowcaseRepositoryImpl struct{}

func NewShowcaseRepository() ShowcaseRepository {
	return &ShowcaseRepositoryImpl{}
}

// Save сохраняет шоукейс вместе с голосами. Вызывать внутри транзакции:
// строка шоукейса обновляется со сверкой версии, голоса - построчно.
func (r *ShowcaseRepositoryImpl) Save(db *gorm.DB, showcase *models.Showcase) error {
	if showcase.Version == 0 {
		showcase.Version = 1
		if err := db.Create(showcase).Error; err != nil {
			showcase.Version = 0
			return err
		}
		return nil
	}

	err := casUpdate(db, &models.Showcase{}, showcase.ID, showcase.Version, map[string]interface{}{
		"media_ids":    showcase.MediaIDs,
		"caption":      showcase.Caption,
		"tags":         showcase.Tags,
		"palette":      showcase.Palette,
		"visibility":   showcase.Visibility,
		"status":       showcase.Status,
		"published_at": showcase.PublishedAt,
		"updated_at":   showcase.UpdatedAt,
	})
	if err != nil {
		return err
	}

	for i := range showcase.Approvals {
		a := &showcase.Approvals[i]
		err := db.Model(&models.ShowcaseApproval{}).
			Where("id = ? AND showcase_id = ?", a.ID, showcase.ID).
			Updates(map[string]interface{}{
				"action":     a.Action,
				"note":       a.Note,
				"acted_at":   a.ActedAt,
				"updated_at": a.UpdatedAt,
			}).Error
		if err != nil {
			return err
		}
	}

	showcase.Version++
	return nil
}

func (r *ShowcaseRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Showcase, error) {
	return r.find(db, id)
}

// FindByIDForUpdate блокирует строку шоукейса: проверка "все одобрили" и смена статуса идут под ней
func (r *ShowcaseRepositoryImpl) FindByIDForUpdate(db *gorm.DB, id string) (*models.Showcase, error) {
	return r.find(lockForUpdate(db), id)
}

func (r *ShowcaseRepositoryImpl) find(db *gorm.DB, id string) (*models.Showcase, error) {
	var showcase models.Showcase
	err := db.Preload("Approvals", withApprovalOrder).First(&showcase, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShowcaseNotFound
		}
		return nil, err
	}
	return &showcase, nil
}

func withApprovalOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, party_id ASC")
}

func (r *ShowcaseRepositoryImpl) FindByGig(db *gorm.DB, gigID string) ([]models.Showcase, error) {
	var showcases []models.Showcase
	err := db.Preload("Approvals", withApprovalOrder).
		Where("gig_id = ?", gigID).
		Order("created_at DESC").
		Find(&showcases).Error
	return showcases, err
}

func (r *ShowcaseRepositoryImpl) FindByCreator(db *gorm.DB, creatorID string, page Pagination) ([]models.Showcase, int64, error) {
	query := db.Model(&models.Showcase{}).Where("creator_id = ?", creatorID)
	return r.paginate(query, page)
}

func (r *ShowcaseRepositoryImpl) FindByTalent(db *gorm.DB, talentID string, page Pagination) ([]models.Showcase, int64, error) {
	query := db.Model(&models.Showcase{}).Where("id IN (?)", partySubquery(db, talentID))
	return r.paginate(query, page)
}

func (r *ShowcaseRepositoryImpl) paginate(query *gorm.DB, page Pagination) ([]models.Showcase, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var showcases []models.Showcase
	err := query.Preload("Approvals", withApprovalOrder).
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit()).
		Find(&showcases).Error
	return showcases, total, err
}

func partySubquery(db *gorm.DB, partyID string) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.ShowcaseApproval{}).
		Select("showcase_id").
		Where("party_id = ?", partyID)
}

// CountByUser - шоукейсы, где пользователь создатель или один из талантов
func (r *ShowcaseRepositoryImpl) CountByUser(db *gorm.DB, userID string, visibility *models.Visibility) (int64, error) {
	return r.countByUser(db, userID, visibility, nil)
}

// CountByUserThisMonth - то же, но опубликованные (или созданные, если visibility не задан)
// с начала календарного месяца
func (r *ShowcaseRepositoryImpl) CountByUserThisMonth(db *gorm.DB, userID string, visibility *models.Visibility, now time.Time) (int64, error) {
	since := models.StartOfMonth(now)
	return r.countByUser(db, userID, visibility, &since)
}

func (r *ShowcaseRepositoryImpl) countByUser(db *gorm.DB, userID string, visibility *models.Visibility, since *time.Time) (int64, error) {
	query := db.Model(&models.Showcase{}).
		Where("creator_id = ? OR id IN (?)", userID, partySubquery(db, userID))
	if visibility != nil {
		query = query.Where("visibility = ?", *visibility)
	}
	if since != nil {
		if visibility != nil && *visibility == models.VisibilityPublic {
			query = query.Where("published_at >= ?", *since)
		} else {
			query = query.Where("created_at >= ?", *since)
		}
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// HasUnpublishedWithMedia - есть ли среди еще не одобренных шоукейсов участника
// такой, что ссылается на mediaID
func (r *ShowcaseRepositoryImpl) HasUnpublishedWithMedia(db *gorm.DB, partyID, mediaID string) (bool, error) {
	var showcases []models.Showcase
	err := db.Select("id", "media_ids").
		Where("creator_id = ? OR id IN (?)", partyID, partySubquery(db, partyID)).
		Where("status <> ?", models.ShowcaseStatusApproved).
		Find(&showcases).Error
	if err != nil {
		return false, err
	}
	for _, s := range showcases {
		for _, id := range s.MediaIDs.Data() {
			if id == mediaID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *ShowcaseRepositoryImpl) Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("showcase_id = ?", id).Delete(&models.ShowcaseApproval{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Showcase{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrShowcaseNotFound
		}
		return nil
	})
}
