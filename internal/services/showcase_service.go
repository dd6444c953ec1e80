package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ShowcaseService interface {
	CreateShowcase(ctx context.Context, db *gorm.DB, req *dto.CreateShowcaseRequest) (*models.Showcase, error)
	ApproveShowcase(ctx context.Context, db *gorm.DB, req *dto.ApproveShowcaseRequest) (*models.Showcase, error)
	ResubmitShowcase(ctx context.Context, db *gorm.DB, userID, showcaseID string, req *dto.ResubmitShowcaseRequest) (*models.Showcase, error)

	GetShowcase(ctx context.Context, db *gorm.DB, viewerID, showcaseID string) (*models.Showcase, error)
	ListGigShowcases(ctx context.Context, db *gorm.DB, viewerID, gigID string) ([]models.Showcase, error)
}

type showcaseService struct {
	publisher
	showcaseRepo repositories.ShowcaseRepository
	gigRepo      repositories.GigRepository
	appRepo      repositories.ApplicationRepository
	userRepo     repositories.UserRepository
	uploadRepo   repositories.UploadRepository
	quotas       *QuotaPolicy
	now          Clock
}

func NewShowcaseService(
	showcaseRepo repositories.ShowcaseRepository,
	gigRepo repositories.GigRepository,
	appRepo repositories.ApplicationRepository,
	userRepo repositories.UserRepository,
	uploadRepo repositories.UploadRepository,
	quotas *QuotaPolicy,
	bus events.Bus,
	clock Clock,
) ShowcaseService {
	if clock == nil {
		clock = systemClock
	}
	return &showcaseService{
		publisher:    publisher{bus: bus},
		showcaseRepo: showcaseRepo,
		gigRepo:      gigRepo,
		appRepo:      appRepo,
		userRepo:     userRepo,
		uploadRepo:   uploadRepo,
		quotas:       quotas,
		now:          clock,
	}
}

// CreateShowcase собирает галерею по завершенному гигу. Обязательные участники -
// переданные таланты или, по умолчанию, все принятые на гиг.
func (s *showcaseService) CreateShowcase(ctx context.Context, db *gorm.DB, req *dto.CreateShowcaseRequest) (*models.Showcase, error) {
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	gig, err := s.gigRepo.FindByID(tx, req.GigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if gig.Status != models.GigStatusCompleted {
		return nil, apperrors.ErrGigNotCompleted
	}

	creator, err := s.userRepo.FindByUserID(tx, req.CreatorID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !gig.IsOwner(creator.UserID) {
		return nil, apperrors.ErrUnauthorized
	}
	if !creator.Has(models.RoleContributor) {
		return nil, apperrors.ErrNotContributor
	}

	accepted, err := s.acceptedTalents(tx, gig.ID)
	if err != nil {
		return nil, err
	}

	talentIDs := req.TalentIDs
	if len(talentIDs) == 0 {
		for id := range accepted {
			talentIDs = append(talentIDs, id)
		}
		sort.Strings(talentIDs)
	}
	talentIDs = normalizeIDs(talentIDs)

	for _, id := range talentIDs {
		if id == creator.UserID {
			return nil, apperrors.ErrSelfApprovalForbidden
		}
	}
	talents, err := s.userRepo.FindByUserIDs(tx, talentIDs)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if len(talents) != len(talentIDs) {
		return nil, apperrors.ErrUserNotFound.WithDetails(map[string]interface{}{"talent_ids": talentIDs})
	}
	for _, id := range talentIDs {
		if !accepted[id] {
			return nil, apperrors.ErrUnauthorized.WithDetails(map[string]string{
				"talent_id": id,
				"reason":    "talent was not accepted on this gig",
			})
		}
	}

	if err := models.ValidateMediaCount(req.MediaIDs); err != nil {
		return nil, err
	}
	parties := append([]string{creator.UserID}, talentIDs...)
	if err := s.checkMedia(tx, req.MediaIDs, parties); err != nil {
		return nil, err
	}

	// квота считается по публичным шоукейсам каждого участника, их профили держим до коммита
	held, err := holdQuotas(tx, s.userRepo, parties)
	if err != nil {
		return nil, handleRepoError(err)
	}
	public := models.VisibilityPublic
	for _, id := range parties {
		party := held[id]
		count, err := s.showcaseRepo.CountByUserThisMonth(tx, party.UserID, &public, now)
		if err != nil {
			return nil, handleRepoError(err)
		}
		if err := party.CanCreateShowcase(s.quotas.For(party.SubscriptionTier), count); err != nil {
			if errors.Is(err, apperrors.ErrShowcaseQuotaExceeded) {
				return nil, apperrors.ErrShowcaseQuotaExceeded.WithDetails(map[string]string{"user_id": party.UserID})
			}
			return nil, err
		}
	}

	showcase, evt, err := models.NewShowcase(models.ShowcaseParams{
		GigID:     gig.ID,
		CreatorID: creator.UserID,
		TalentIDs: talentIDs,
		MediaIDs:  req.MediaIDs,
		Caption:   req.Caption,
		Tags:      req.Tags,
		Palette:   req.Palette,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.showcaseRepo.Save(tx, showcase); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "showcase created", "showcase_id", showcase.ID, "gig_id", gig.ID, "approvers", len(talentIDs))
	s.publish(ctx, evt)
	return showcase, nil
}

// ApproveShowcase - голос одного участника. Проверка "одобрили все" и смена
// статуса выполняются под блокировкой строки шоукейса в одной транзакции с записью голоса.
func (s *showcaseService) ApproveShowcase(ctx context.Context, db *gorm.DB, req *dto.ApproveShowcaseRequest) (*models.Showcase, error) {
	action := models.ApprovalAction(strings.ToLower(req.Action))
	if action != models.ApprovalActionApprove && action != models.ApprovalActionRequestChanges {
		return nil, apperrors.ValidationError(map[string]string{"action": "Must be approve or request_changes"})
	}
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	showcase, err := s.showcaseRepo.FindByIDForUpdate(tx, req.ShowcaseID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	gig, err := s.gigRepo.FindByID(tx, showcase.GigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	user, err := s.userRepo.FindByUserID(tx, req.UserID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if user.UserID == showcase.CreatorID {
		return nil, apperrors.ErrSelfApprovalForbidden
	}
	if !showcase.IsRequiredApprover(user.UserID) {
		return nil, apperrors.ErrUnauthorized
	}
	app, err := s.appRepo.FindByGigAndApplicant(tx, gig.ID, user.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, handleRepoError(err)
	}
	if !app.IsAccepted() {
		return nil, apperrors.ErrUnauthorized
	}

	var (
		changed *models.ShowcaseApproval
		evts    []models.DomainEvent
	)
	if action == models.ApprovalActionApprove {
		changed, evts, err = showcase.Approve(user.UserID, req.Note, now)
	} else {
		changed, evts, err = showcase.RequestChanges(user.UserID, req.Note, now)
	}
	if err != nil {
		return nil, err
	}
	if changed == nil {
		// повторное одобрение: ничего не пишем и не публикуем
		return showcase, nil
	}

	if err := s.showcaseRepo.Save(tx, showcase); err != nil {
		return nil, handleRepoError(err)
	}
	if showcase.IsPublic() && s.uploadRepo != nil {
		if err := s.uploadRepo.MarkPublic(tx, showcase.MediaIDs.Data(), true); err != nil {
			return nil, handleRepoError(err)
		}
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "showcase approval recorded",
		"showcase_id", showcase.ID, "party_id", user.UserID, "action", action, "status", showcase.Status)
	s.publish(ctx, evts...)
	return showcase, nil
}

// ResubmitShowcase - создатель отвечает на запрос правок, все голоса сбрасываются
func (s *showcaseService) ResubmitShowcase(ctx context.Context, db *gorm.DB, userID, showcaseID string, req *dto.ResubmitShowcaseRequest) (*models.Showcase, error) {
	now := s.now()

	tx, err := beginTx(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	showcase, err := s.showcaseRepo.FindByIDForUpdate(tx, showcaseID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if req.MediaIDs != nil {
		if err := models.ValidateMediaCount(req.MediaIDs); err != nil {
			return nil, err
		}
		if err := s.checkMedia(tx, req.MediaIDs, append([]string{showcase.CreatorID}, showcase.RequiredApprovers()...)); err != nil {
			return nil, err
		}
	}

	evt, err := showcase.Resubmit(userID, models.ShowcaseRevision{
		MediaIDs: req.MediaIDs,
		Caption:  req.Caption,
		Tags:     req.Tags,
		Palette:  req.Palette,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.showcaseRepo.Save(tx, showcase); err != nil {
		return nil, handleRepoError(err)
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "showcase resubmitted", "showcase_id", showcase.ID)
	s.publish(ctx, evt)
	return showcase, nil
}

// GetShowcase: приватный шоукейс видят только его участники
func (s *showcaseService) GetShowcase(ctx context.Context, db *gorm.DB, viewerID, showcaseID string) (*models.Showcase, error) {
	showcase, err := s.showcaseRepo.FindByID(db.WithContext(ctx), showcaseID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	if !canView(showcase, viewerID) {
		return nil, apperrors.ErrShowcaseNotFound
	}
	return showcase, nil
}

func (s *showcaseService) ListGigShowcases(ctx context.Context, db *gorm.DB, viewerID, gigID string) ([]models.Showcase, error) {
	all, err := s.showcaseRepo.FindByGig(db.WithContext(ctx), gigID)
	if err != nil {
		return nil, handleRepoError(err)
	}
	visible := make([]models.Showcase, 0, len(all))
	for i := range all {
		if canView(&all[i], viewerID) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

func canView(s *models.Showcase, viewerID string) bool {
	return s.IsPublic() || viewerID == s.CreatorID || s.IsRequiredApprover(viewerID)
}

func (s *showcaseService) acceptedTalents(tx *gorm.DB, gigID string) (map[string]bool, error) {
	status := models.ApplicationStatusAccepted
	apps, err := s.appRepo.FindByGig(tx, gigID, &status)
	if err != nil {
		return nil, handleRepoError(err)
	}
	accepted := make(map[string]bool, len(apps))
	for _, a := range apps {
		accepted[a.ApplicantID] = true
	}
	return accepted, nil
}

// checkMedia - media_ids уникальны, и каждый из них - файл, загруженный
// одним из участников шоукейса. Чужие приватные файлы не публикуются.
func (s *showcaseService) checkMedia(tx *gorm.DB, mediaIDs, parties []string) error {
	ids := normalizeIDs(mediaIDs)
	if len(ids) != len(mediaIDs) {
		return apperrors.ValidationError(map[string]string{"media_ids": "Media ids must be unique"})
	}
	if s.uploadRepo == nil {
		return nil
	}
	uploads, err := s.uploadRepo.FindByIDs(tx, ids)
	if err != nil {
		return handleRepoError(err)
	}
	if len(uploads) != len(ids) {
		return apperrors.ValidationError(map[string]string{"media_ids": "Unknown media id"})
	}

	allowed := make(map[string]struct{}, len(parties))
	for _, id := range parties {
		allowed[id] = struct{}{}
	}
	for _, u := range uploads {
		if _, ok := allowed[u.UserID]; !ok {
			return apperrors.ErrUnauthorized.WithDetails(map[string]string{
				"media_id": u.ID,
				"reason":   "media was not uploaded by a showcase party",
			})
		}
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
