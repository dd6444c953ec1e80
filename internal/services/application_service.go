package services

import (
	"context"
	"errors"
	"fmt"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ApplicationService interface {
	ApplyToGig(ctx context.Context, db *gorm.DB, req *dto.ApplyToGigRequest) (*models.Application, error)
	ReviewApplication(ctx context.Context, db *gorm.DB, ownerID, applicationID string, status models.ApplicationStatus) (*models.Application, error)

	ListGigApplications(ctx context.Context, db *gorm.DB, ownerID, gigID string, status *models.ApplicationStatus) (*dto.ApplicationListResponse, error)
	ListMyApplications(ctx context.Context, db *gorm.DB, applicantID string, page repositories.Pagination) (*dto.ApplicationListResponse, error)
}

type applicationService struct {
	publisher
	gigRepo  repositories.GigRepository
	appRepo  repositories.ApplicationRepository
	userRepo repositories.UserRepository
	notifier NotificationService
	quotas   *QuotaPolicy
	now      Clock
}

func NewApplicationService(
	gigRepo repositories.GigRepository,
	appRepo repositories.ApplicationRepository,
	userRepo repositories.UserRepository,
	notifier NotificationService,
	quotas *QuotaPolicy,
	bus events.Bus,
	clock Clock,
) ApplicationService {
	if clock == nil {
		clock = systemClock
	}
	return &applicationService{
		publisher: publisher{bus: bus},
		gigRepo:   gigRepo,
		appRepo:   appRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		quotas:    quotas,
		now:       clock,
	}
}

// ApplyToGig - контроль допуска заявки. Порядок проверок фиксирован:
// гиг, прием открыт, заявитель и его роль, месячная квота, дубликат, вместимость.
// Строка гига блокируется, а его версия увеличивается, поэтому параллельные
// заявки на один гиг выполняются по очереди.
func (s *applicationService) ApplyToGig(ctx context.Context, db *gorm.DB, req *dto.ApplyToGigRequest) (*models.Application, error) {
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gig, err := s.gigRepo.FindByIDForUpdate(tx, req.GigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !gig.IsApplicationOpen(now) {
		return nil, apperrors.ErrGigNotAcceptingApplications
	}

	// профиль заявителя держим до коммита: под ним считается месячная квота
	applicant, err := holdQuota(tx, s.userRepo, req.ApplicantID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrApplicantNotFound
		}
		return nil, handleRepoError(err)
	}
	if !applicant.Has(models.RoleTalent) {
		return nil, apperrors.ErrNotTalent
	}
	if gig.IsOwner(applicant.UserID) {
		return nil, apperrors.ErrUnauthorized
	}

	since := models.StartOfMonth(now)
	applied, err := s.appRepo.CountByApplicant(tx, applicant.UserID, &since)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if err := applicant.CanApply(s.quotas.For(applicant.SubscriptionTier), applied); err != nil {
		return nil, err
	}

	if _, err := s.appRepo.FindByGigAndApplicant(tx, gig.ID, applicant.UserID); err == nil {
		return nil, apperrors.ErrDuplicateApplication
	} else if !errors.Is(err, repositories.ErrApplicationNotFound) {
		return nil, handleRepoError(err)
	}

	total, err := s.appRepo.CountByGig(tx, gig.ID, nil)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if total >= int64(gig.MaxApplicants) {
		return nil, apperrors.ErrGigFull
	}

	app, evt := models.NewApplication(gig.ID, applicant.UserID, req.Note, now)
	if err := s.appRepo.Save(tx, app); err != nil {
		return nil, handleRepoError(err)
	}
	// версия гига - маркер того, что набор заявок изменился
	gig.UpdatedAt = now
	if err := s.gigRepo.Save(tx, gig); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "application submitted", "gig_id", gig.ID, "application_id", app.ID)
	s.publish(ctx, evt)

	if s.notifier != nil {
		notify(ctx, "application.submitted", func() error {
			return s.notifier.SendPushNotification(ctx, gig.OwnerUserID, string(models.EventApplicationSubmitted),
				"New application",
				fmt.Sprintf("@%s applied to %q", applicant.Handle, gig.Title),
				map[string]interface{}{"gig_id": gig.ID, "application_id": app.ID},
			)
		})
	}
	return app, nil
}

// ReviewApplication - владелец гига переводит заявку. Число ACCEPTED
// пересчитывается под блокировкой гига и не превышает maxApplicants.
func (s *applicationService) ReviewApplication(ctx context.Context, db *gorm.DB, ownerID, applicationID string, status models.ApplicationStatus) (*models.Application, error) {
	if !status.IsValid() {
		return nil, apperrors.ValidationError(map[string]string{"status": "Unknown application status"})
	}
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	app, err := s.appRepo.FindByID(tx, applicationID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	gig, err := s.gigRepo.FindByIDForUpdate(tx, app.GigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !gig.IsOwner(ownerID) {
		return nil, apperrors.ErrUnauthorized
	}
	if !gig.AcceptsApplicationChanges() {
		return nil, apperrors.ErrInvalidStateTransition.WithDetails(map[string]string{
			"gig_status": string(gig.Status),
		})
	}

	if status == models.ApplicationStatusAccepted && !app.IsAccepted() {
		accepted := models.ApplicationStatusAccepted
		count, err := s.appRepo.CountByGig(tx, gig.ID, &accepted)
		if err != nil {
			return nil, handleRepoError(err)
		}
		if count >= int64(gig.MaxApplicants) {
			return nil, apperrors.ErrGigFull
		}
	}

	evt, err := app.ChangeStatus(status, now)
	if err != nil {
		return nil, err
	}
	if err := s.appRepo.Save(tx, app); err != nil {
		return nil, handleRepoError(err)
	}
	gig.UpdatedAt = now
	if err := s.gigRepo.Save(tx, gig); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "application reviewed", "application_id", app.ID, "status", app.Status)
	s.publish(ctx, evt)
	return app, nil
}

func (s *applicationService) ListGigApplications(ctx context.Context, db *gorm.DB, ownerID, gigID string, status *models.ApplicationStatus) (*dto.ApplicationListResponse, error) {
	db = db.WithContext(ctx)
	gig, err := s.gigRepo.FindByID(db, gigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !gig.IsOwner(ownerID) {
		return nil, apperrors.ErrUnauthorized
	}

	apps, err := s.appRepo.FindByGig(db, gigID, status)
	if err != nil {
		return nil, handleRepoError(err)
	}
	return buildApplicationList(apps, int64(len(apps))), nil
}

func (s *applicationService) ListMyApplications(ctx context.Context, db *gorm.DB, applicantID string, page repositories.Pagination) (*dto.ApplicationListResponse, error) {
	apps, total, err := s.appRepo.FindByApplicant(db.WithContext(ctx), applicantID, page.Normalize())
	if err != nil {
		return nil, handleRepoError(err)
	}
	return buildApplicationList(apps, total), nil
}

func buildApplicationList(apps []models.Application, total int64) *dto.ApplicationListResponse {
	resp := &dto.ApplicationListResponse{
		Applications: make([]*dto.ApplicationResponse, 0, len(apps)),
		Total:        total,
	}
	for i := range apps {
		resp.Applications = append(resp.Applications, dto.NewApplicationResponse(&apps[i]))
	}
	return resp
}
