package services

import (
	"context"
	"errors"
	"strings"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// ProfileService - профили участников. Пользователь приходит из провайдера
// идентичности с userID в токене, профиль с ролями заводит себе сам.
type ProfileService interface {
	GetMyProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.ProfileResponse, error)
	UpsertMyProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error)
	GetProfileByHandle(ctx context.Context, db *gorm.DB, handle string) (*dto.ProfileResponse, error)
	SetSubscriptionTier(ctx context.Context, db *gorm.DB, userID string, tier models.SubscriptionTier) (*dto.ProfileResponse, error)
}

type profileService struct {
	userRepo repositories.UserRepository
	quotas   *QuotaPolicy
	now      Clock
}

func NewProfileService(userRepo repositories.UserRepository, quotas *QuotaPolicy, clock Clock) ProfileService {
	if clock == nil {
		clock = systemClock
	}
	return &profileService{userRepo: userRepo, quotas: quotas, now: clock}
}

func (s *profileService) GetMyProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.ProfileResponse, error) {
	profile, err := s.userRepo.FindByUserID(db.WithContext(ctx), userID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return s.ownView(profile), nil
}

// UpsertMyProfile создает профиль или обновляет handle, контакты и роли.
// ADMIN, выданный сидированием, сохраняется; тариф здесь не меняется.
func (s *profileService) UpsertMyProfile(ctx context.Context, db *gorm.DB, userID string, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error) {
	roles, err := parseSelfRoles(req.Roles)
	if err != nil {
		return nil, err
	}
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	profile, err := s.userRepo.FindByUserID(tx, userID)
	created := false
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		profile = &models.UserProfile{UserID: userID, SubscriptionTier: models.TierFree}
		created = true
	case err != nil:
		return nil, handleRepoError(err)
	}

	handle := strings.ToLower(strings.TrimSpace(req.Handle))
	if handle != profile.Handle {
		taken, err := s.userRepo.Exists(tx, handle)
		if err != nil {
			return nil, handleRepoError(err)
		}
		if taken {
			return nil, apperrors.ErrConflict(repositories.ErrUserAlreadyExists, "user", "Handle is already taken")
		}
	}

	if profile.Has(models.RoleAdmin) {
		roles = roles.With(models.RoleAdmin)
	}
	profile.Handle = handle
	profile.DisplayName = strings.TrimSpace(req.DisplayName)
	profile.Email = strings.TrimSpace(req.Email)
	profile.Phone = strings.TrimSpace(req.Phone)
	profile.Roles = roles
	profile.UpdatedAt = now

	if err := s.userRepo.Save(tx, profile); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrConflict(err, "user", "Handle is already taken")
		}
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "profile saved", "user_id", userID, "created", created, "roles", roles.Names())
	return s.ownView(profile), nil
}

func (s *profileService) GetProfileByHandle(ctx context.Context, db *gorm.DB, handle string) (*dto.ProfileResponse, error) {
	profile, err := s.userRepo.FindByHandle(db.WithContext(ctx), strings.ToLower(handle))
	if err != nil {
		return nil, handleRepoError(err)
	}
	return dto.NewProfileResponse(profile, nil), nil
}

// SetSubscriptionTier - административная смена тарифа (биллинг вне системы)
func (s *profileService) SetSubscriptionTier(ctx context.Context, db *gorm.DB, userID string, tier models.SubscriptionTier) (*dto.ProfileResponse, error) {
	if !tier.IsValid() {
		return nil, apperrors.ValidationError(map[string]string{"tier": "Must be one of: free, plus, pro"})
	}

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	profile, err := s.userRepo.FindByUserID(tx, userID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	profile.SubscriptionTier = tier
	profile.UpdatedAt = s.now()
	if err := s.userRepo.Save(tx, profile); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription tier changed", "user_id", userID, "tier", tier)
	return s.ownView(profile), nil
}

func (s *profileService) ownView(p *models.UserProfile) *dto.ProfileResponse {
	limits := s.quotas.For(p.SubscriptionTier)
	return dto.NewProfileResponse(p, &limits)
}

func parseSelfRoles(names []string) (models.RoleSet, error) {
	var set models.RoleSet
	for _, n := range names {
		r, err := models.ParseRole(n)
		if err != nil || r == models.RoleAdmin {
			return 0, apperrors.ValidationError(map[string]string{"roles": "Must be one of: CONTRIBUTOR, TALENT"})
		}
		set = set.With(r)
	}
	if set == 0 {
		return 0, apperrors.ValidationError(map[string]string{"roles": "At least one role is required"})
	}
	return set, nil
}
