package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type GigService interface {
	CreateGig(ctx context.Context, db *gorm.DB, req *dto.CreateGigRequest) (*models.Gig, error)
	PublishGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error)
	CloseApplications(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error)
	BookGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error)
	CompleteGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error)
	CancelGig(ctx context.Context, db *gorm.DB, userID, gigID, reason string) (*models.Gig, error)

	GetGig(ctx context.Context, db *gorm.DB, gigID string) (*models.Gig, error)
	ListPublishedGigs(ctx context.Context, db *gorm.DB, query *dto.GigListQuery) (*dto.GigListResponse, error)
	ListMyGigs(ctx context.Context, db *gorm.DB, userID string, page repositories.Pagination) (*dto.GigListResponse, error)
}

type gigService struct {
	publisher
	gigRepo  repositories.GigRepository
	appRepo  repositories.ApplicationRepository
	userRepo repositories.UserRepository
	quotas   *QuotaPolicy
	now      Clock
}

func NewGigService(
	gigRepo repositories.GigRepository,
	appRepo repositories.ApplicationRepository,
	userRepo repositories.UserRepository,
	quotas *QuotaPolicy,
	bus events.Bus,
	clock Clock,
) GigService {
	if clock == nil {
		clock = systemClock
	}
	return &gigService{
		publisher: publisher{bus: bus},
		gigRepo:   gigRepo,
		appRepo:   appRepo,
		userRepo:  userRepo,
		quotas:    quotas,
		now:       clock,
	}
}

// CreateGig создает гиг в DRAFT (или сразу PUBLISHED при req.Publish)
func (s *gigService) CreateGig(ctx context.Context, db *gorm.DB, req *dto.CreateGigRequest) (*models.Gig, error) {
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	owner, err := holdQuota(tx, s.userRepo, req.OwnerUserID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	since := models.StartOfMonth(now)
	created, err := s.gigRepo.CountByOwner(tx, owner.UserID, nil, &since)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if err := owner.CanCreateGig(s.quotas.For(owner.SubscriptionTier), created); err != nil {
		return nil, err
	}

	gig, createdEvt, err := models.NewGig(models.GigParams{
		OwnerUserID: owner.UserID,
		Title:       req.Title,
		Description: req.Description,
		Compensation: models.Compensation{
			Type:    models.CompensationType(strings.ToUpper(req.CompensationType)),
			Details: strings.TrimSpace(req.CompensationDetails),
		},
		Location: models.Location{
			Text:      strings.TrimSpace(req.Location.Text),
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			RadiusKm:  req.Location.RadiusKm,
		},
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		ApplicationDeadline: req.ApplicationDeadline,
		MaxApplicants:       req.MaxApplicants,
		UsageRights:         req.UsageRights,
		SafetyNotes:         req.SafetyNotes,
	}, now)
	if err != nil {
		return nil, err
	}

	evts := []models.DomainEvent{createdEvt}
	if req.Publish {
		publishedEvt, err := gig.Publish(now)
		if err != nil {
			return nil, err
		}
		evts = append(evts, publishedEvt)
	}

	if err := s.gigRepo.Save(tx, gig); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "gig created", "gig_id", gig.ID, "status", gig.Status)
	s.publish(ctx, evts...)
	return gig, nil
}

func (s *gigService) PublishGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error) {
	return s.mutateOwned(ctx, db, userID, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		evt, err := gig.Publish(now)
		if err != nil {
			return nil, err
		}
		return []models.DomainEvent{evt}, nil
	})
}

func (s *gigService) CloseApplications(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error) {
	return s.mutateOwned(ctx, db, userID, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		return nil, gig.CloseApplications(now)
	})
}

// BookGig фиксирует состав: нужен хотя бы один ACCEPTED
func (s *gigService) BookGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error) {
	return s.mutateOwned(ctx, db, userID, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		gig.CloseIfExpired(now)
		accepted := models.ApplicationStatusAccepted
		count, err := s.appRepo.CountByGig(tx, gig.ID, &accepted)
		if err != nil {
			return nil, handleRepoError(err)
		}
		return nil, gig.Book(count, now)
	})
}

// CompleteGig допустим только из BOOKED. Побочных эффектов нет.
func (s *gigService) CompleteGig(ctx context.Context, db *gorm.DB, userID, gigID string) (*models.Gig, error) {
	return s.mutateOwned(ctx, db, userID, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		return nil, gig.Complete(now)
	})
}

// CancelGig - владелец или администратор
func (s *gigService) CancelGig(ctx context.Context, db *gorm.DB, userID, gigID, reason string) (*models.Gig, error) {
	return s.mutate(ctx, db, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		if !gig.IsOwner(userID) {
			actor, err := s.userRepo.FindByUserID(tx, userID)
			if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
				return nil, handleRepoError(err)
			}
			if actor == nil || !actor.Has(models.RoleAdmin) {
				return nil, apperrors.ErrUnauthorized
			}
		}
		evt, err := gig.Cancel(strings.TrimSpace(reason), now)
		if err != nil {
			return nil, err
		}
		return []models.DomainEvent{evt}, nil
	})
}

type gigMutation func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error)

func (s *gigService) mutateOwned(ctx context.Context, db *gorm.DB, userID, gigID string, fn gigMutation) (*models.Gig, error) {
	return s.mutate(ctx, db, gigID, func(tx *gorm.DB, gig *models.Gig, now time.Time) ([]models.DomainEvent, error) {
		if !gig.IsOwner(userID) {
			return nil, apperrors.ErrUnauthorized
		}
		return fn(tx, gig, now)
	})
}

// mutate загружает гиг под блокировкой, применяет переход и сохраняет с CAS по версии
func (s *gigService) mutate(ctx context.Context, db *gorm.DB, gigID string, fn gigMutation) (*models.Gig, error) {
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gig, err := s.gigRepo.FindByIDForUpdate(tx, gigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	from := gig.Status

	evts, err := fn(tx, gig, now)
	if err != nil {
		return nil, err
	}

	if err := s.gigRepo.Save(tx, gig); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "gig status changed", "gig_id", gig.ID, "from", from, "to", gig.Status)
	s.publish(ctx, evts...)
	return gig, nil
}

func (s *gigService) GetGig(ctx context.Context, db *gorm.DB, gigID string) (*models.Gig, error) {
	gig, err := s.gigRepo.FindByID(db.WithContext(ctx), gigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return gig, nil
}

func (s *gigService) ListPublishedGigs(ctx context.Context, db *gorm.DB, query *dto.GigListQuery) (*dto.GigListResponse, error) {
	now := s.now()
	filter := repositories.GigFilter{
		CompensationType: models.CompensationType(strings.ToUpper(query.CompensationType)),
		Location:         strings.TrimSpace(query.Location),
		StartsAfter:      query.StartsAfter,
		StartsBefore:     query.StartsBefore,
	}
	if query.OpenOnly {
		filter.OpenAt = &now
	}
	page := repositories.Pagination{Page: query.Page, PageSize: query.PageSize}.Normalize()

	gigs, total, err := s.gigRepo.FindPublished(db.WithContext(ctx), filter, page)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return buildGigList(gigs, total, page, now), nil
}

func (s *gigService) ListMyGigs(ctx context.Context, db *gorm.DB, userID string, page repositories.Pagination) (*dto.GigListResponse, error) {
	page = page.Normalize()
	gigs, total, err := s.gigRepo.FindByOwner(db.WithContext(ctx), userID, page)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return buildGigList(gigs, total, page, s.now()), nil
}

func buildGigList(gigs []models.Gig, total int64, page repositories.Pagination, now time.Time) *dto.GigListResponse {
	resp := &dto.GigListResponse{
		Gigs:     make([]*dto.GigResponse, 0, len(gigs)),
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for i := range gigs {
		resp.Gigs = append(resp.Gigs, dto.NewGigResponse(&gigs[i], now))
	}
	return resp
}
