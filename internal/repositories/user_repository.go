package repositories

import (
	"errors"

	"gigboard_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	Save(db *gorm.DB, user *models.UserProfile) error
	FindByID(db *gorm.DB, id string) (*models.UserProfile, error)
	FindByUserID(db *gorm.DB, userID string) (*models.UserProfile, error)
	FindByUserIDForUpdate(db *gorm.DB, userID string) (*models.UserProfile, error)
	Touch(db *gorm.DB, user *models.UserProfile) error
	FindByUserIDs(db *gorm.DB, userIDs []string) ([]models.UserProfile, error)
	FindByHandle(db *gorm.DB, handle string) (*models.UserProfile, error)
	Exists(db *gorm.DB, handle string) (bool, error)
	Delete(db *gorm.DB, id string) error
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Save(db *gorm.DB, user *models.UserProfile) error {
	if user.Version == 0 {
		user.Version = 1
		if err := db.Create(user).Error; err != nil {
			user.Version = 0
			if isDuplicateKey(err) {
				return ErrUserAlreadyExists
			}
			return err
		}
		return nil
	}

	err := casUpdate(db, &models.UserProfile{}, user.ID, user.Version, map[string]interface{}{
		"handle":            user.Handle,
		"display_name":      user.DisplayName,
		"email":             user.Email,
		"phone":             user.Phone,
		"roles":             user.Roles,
		"subscription_tier": user.SubscriptionTier,
		"updated_at":        user.UpdatedAt,
	})
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUserAlreadyExists
		}
		return err
	}
	user.Version++
	return nil
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.UserProfile, error) {
	return r.findOne(db.Where("id = ?", id))
}

// FindByUserID ищет профиль по идентификатору пользователя из JWT
func (r *UserRepositoryImpl) FindByUserID(db *gorm.DB, userID string) (*models.UserProfile, error) {
	return r.findOne(db.Where("user_id = ?", userID))
}

// FindByUserIDForUpdate блокирует профиль до конца транзакции. Под этой блокировкой
// считаются месячные квоты пользователя.
func (r *UserRepositoryImpl) FindByUserIDForUpdate(db *gorm.DB, userID string) (*models.UserProfile, error) {
	return r.findOne(lockForUpdate(db).Where("user_id = ?", userID))
}

// Touch поднимает версию профиля, не меняя полей. Устаревшая копия после этого
// получит ErrVersionConflict.
func (r *UserRepositoryImpl) Touch(db *gorm.DB, user *models.UserProfile) error {
	if err := casUpdate(db, &models.UserProfile{}, user.ID, user.Version, map[string]interface{}{}); err != nil {
		return err
	}
	user.Version++
	return nil
}

func (r *UserRepositoryImpl) FindByUserIDs(db *gorm.DB, userIDs []string) ([]models.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.UserProfile
	err := db.Where("user_id IN ?", userIDs).Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) FindByHandle(db *gorm.DB, handle string) (*models.UserProfile, error) {
	return r.findOne(db.Where("handle = ?", handle))
}

func (r *UserRepositoryImpl) findOne(query *gorm.DB) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Exists(db *gorm.DB, handle string) (bool, error) {
	var count int64
	err := db.Model(&models.UserProfile{}).Where("handle = ?", handle).Count(&count).Error
	return count > 0, err
}

func (r *UserRepositoryImpl) Delete(db *gorm.DB, id string) error {
	res := db.Delete(&models.UserProfile{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
