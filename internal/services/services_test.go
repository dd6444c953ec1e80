package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gigboard_backend/internal/events"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/internal/storage"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type pushCall struct {
	userID string
	kind   string
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []pushCall
	fail   bool
}

func (f *fakeNotifier) SendEmail(context.Context, []string, string, string, map[string]interface{}) error {
	return nil
}

func (f *fakeNotifier) SendPushNotification(_ context.Context, userID, kind, _, _ string, _ map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("push gateway down")
	}
	f.pushes = append(f.pushes, pushCall{userID: userID, kind: kind})
	return nil
}

func (f *fakeNotifier) SendSms(context.Context, string, string) error { return nil }

type eventLog struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (l *eventLog) handle(_ context.Context, evt models.DomainEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	return nil
}

func (l *eventLog) count(t models.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

func (l *eventLog) last(t models.EventType) models.DomainEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].EventType == t {
			return l.events[i]
		}
	}
	return models.DomainEvent{}
}

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	svc      *services.ServiceContainer
	repos    *services.Repositories
	notifier *fakeNotifier
	log      *eventLog
	now      time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := helpers.TestConfig()
	db := helpers.NewTestDBWithConfig(t, cfg)

	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		repos:    services.NewRepositories(),
		notifier: &fakeNotifier{},
		log:      &eventLog{},
		now:      testNow,
	}

	bus := events.NewInMemoryBus(events.WithSynchronousDelivery())
	bus.Subscribe(events.AllEvents, f.log.handle)

	clock := func() time.Time { return f.now }
	f.svc = services.NewServiceContainer(cfg, f.repos, bus, f.notifier, nil, clock)
	return f
}

func (f *fixture) gigRequest(owner *models.UserProfile, maxApplicants int) *dto.CreateGigRequest {
	return &dto.CreateGigRequest{
		OwnerUserID:         owner.UserID,
		Title:               "Autumn lookbook",
		CompensationType:    "tfp",
		CompensationDetails: "Edited images",
		Location:            dto.LocationRequest{Text: "Almaty, studio 4"},
		StartTime:           testNow.Add(48 * time.Hour),
		EndTime:             testNow.Add(52 * time.Hour),
		ApplicationDeadline: testNow.Add(24 * time.Hour),
		MaxApplicants:       maxApplicants,
		Publish:             true,
	}
}

func (f *fixture) publishedGig(t *testing.T, owner *models.UserProfile, maxApplicants int) *models.Gig {
	t.Helper()
	gig, err := f.svc.GigService.CreateGig(f.ctx, f.db, f.gigRequest(owner, maxApplicants))
	require.NoError(t, err)
	require.Equal(t, models.GigStatusPublished, gig.Status)
	return gig
}

func (f *fixture) apply(t *testing.T, gig *models.Gig, talent *models.UserProfile) *models.Application {
	t.Helper()
	app, err := f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: gig.ID, ApplicantID: talent.UserID})
	require.NoError(t, err)
	return app
}

// completedGig проводит гиг через весь жизненный цикл с принятыми талантами
func (f *fixture) completedGig(t *testing.T, owner *models.UserProfile, talents ...*models.UserProfile) *models.Gig {
	t.Helper()
	gig := f.publishedGig(t, owner, len(talents)+1)
	for _, talent := range talents {
		app := f.apply(t, gig, talent)
		_, err := f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, app.ID, models.ApplicationStatusAccepted)
		require.NoError(t, err)
	}

	var err error
	_, err = f.svc.GigService.CloseApplications(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)
	_, err = f.svc.GigService.BookGig(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)
	gig, err = f.svc.GigService.CompleteGig(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)
	require.Equal(t, models.GigStatusCompleted, gig.Status)
	return gig
}

func (f *fixture) showcase(t *testing.T, gig *models.Gig, creator *models.UserProfile, talents ...*models.UserProfile) *models.Showcase {
	t.Helper()
	req := &dto.CreateShowcaseRequest{
		GigID:     gig.ID,
		CreatorID: creator.UserID,
		MediaIDs:  helpers.CreateUploads(t, f.db, creator.UserID, 3),
		Caption:   "Golden hour",
	}
	for _, talent := range talents {
		req.TalentIDs = append(req.TalentIDs, talent.UserID)
	}
	s, err := f.svc.ShowcaseService.CreateShowcase(f.ctx, f.db, req)
	require.NoError(t, err)
	return s
}

func (f *fixture) act(showcase *models.Showcase, user *models.UserProfile, action, note string) (*models.Showcase, error) {
	return f.svc.ShowcaseService.ApproveShowcase(f.ctx, f.db, &dto.ApproveShowcaseRequest{
		ShowcaseID: showcase.ID,
		UserID:     user.UserID,
		Action:     action,
		Note:       note,
	})
}

// --- Gig lifecycle ---

func TestCreateGig(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)

	req := f.gigRequest(owner, 2)
	req.Publish = false
	gig, err := f.svc.GigService.CreateGig(f.ctx, f.db, req)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusDraft, gig.Status)
	assert.Equal(t, models.CompensationType("TFP"), gig.Compensation.Type)
	assert.Equal(t, 1, f.log.count(models.EventGigCreated))
	assert.Zero(t, f.log.count(models.EventGigPublished))

	t.Run("unknown owner", func(t *testing.T) {
		_, err := f.svc.GigService.CreateGig(f.ctx, f.db, &dto.CreateGigRequest{OwnerUserID: "nobody"})
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("talent cannot post gigs", func(t *testing.T) {
		talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
		_, err := f.svc.GigService.CreateGig(f.ctx, f.db, f.gigRequest(talent, 1))
		assert.ErrorIs(t, err, apperrors.ErrNotContributor)
	})

	t.Run("invariants", func(t *testing.T) {
		bad := f.gigRequest(owner, 0)
		bad.EndTime = bad.StartTime
		_, err := f.svc.GigService.CreateGig(f.ctx, f.db, bad)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
		details := appErr.Details.(map[string]string)
		assert.Contains(t, details, "end_time")
		assert.Contains(t, details, "max_applicants")
	})

	t.Run("monthly quota", func(t *testing.T) {
		// free: 2 гига в месяц, один уже создан выше
		_, err := f.svc.GigService.CreateGig(f.ctx, f.db, f.gigRequest(owner, 1))
		require.NoError(t, err)
		_, err = f.svc.GigService.CreateGig(f.ctx, f.db, f.gigRequest(owner, 1))
		assert.ErrorIs(t, err, apperrors.ErrGigQuotaExceeded)

		// в следующем месяце квота обнуляется
		f.now = testNow.AddDate(0, 1, 0)
		req := f.gigRequest(owner, 1)
		req.StartTime = f.now.Add(48 * time.Hour)
		req.EndTime = f.now.Add(50 * time.Hour)
		req.ApplicationDeadline = f.now.Add(time.Hour)
		_, err = f.svc.GigService.CreateGig(f.ctx, f.db, req)
		assert.NoError(t, err)
	})
}

func TestCompleteGig_OnlyFromBooked(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfileWithTier(t, f.db, "owner", models.TierPro, models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)

	draftReq := f.gigRequest(owner, 1)
	draftReq.Publish = false
	draft, err := f.svc.GigService.CreateGig(f.ctx, f.db, draftReq)
	require.NoError(t, err)

	published := f.publishedGig(t, owner, 1)

	closed := f.publishedGig(t, owner, 1)
	_, err = f.svc.GigService.CloseApplications(f.ctx, f.db, owner.UserID, closed.ID)
	require.NoError(t, err)

	cancelled := f.publishedGig(t, owner, 1)
	_, err = f.svc.GigService.CancelGig(f.ctx, f.db, owner.UserID, cancelled.ID, "")
	require.NoError(t, err)

	completed := f.completedGig(t, owner, talent)

	for name, id := range map[string]string{
		"draft":               draft.ID,
		"published":           published.ID,
		"applications closed": closed.ID,
		"cancelled":           cancelled.ID,
		"completed":           completed.ID,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.GigService.CompleteGig(f.ctx, f.db, owner.UserID, id)
			assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
		})
	}
}

func TestCompleteGig_NonOwner(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	stranger := helpers.CreateProfile(t, f.db, "stranger", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)

	gig := f.publishedGig(t, owner, 1)
	app := f.apply(t, gig, talent)
	_, err := f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, app.ID, models.ApplicationStatusAccepted)
	require.NoError(t, err)
	_, err = f.svc.GigService.CloseApplications(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)
	_, err = f.svc.GigService.BookGig(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)

	_, err = f.svc.GigService.CompleteGig(f.ctx, f.db, stranger.UserID, gig.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	stored, err := f.svc.GigService.GetGig(f.ctx, f.db, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusBooked, stored.Status)

	_, err = f.svc.GigService.CompleteGig(f.ctx, f.db, owner.UserID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrGigNotFound)
}

func TestBookGig_RequiresAcceptedTalent(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	gig := f.publishedGig(t, owner, 2)

	_, err := f.svc.GigService.CloseApplications(f.ctx, f.db, owner.UserID, gig.ID)
	require.NoError(t, err)
	_, err = f.svc.GigService.BookGig(f.ctx, f.db, owner.UserID, gig.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidOperation, appErr.Code)
}

func TestCancelGig(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	admin := helpers.CreateProfile(t, f.db, "admin", models.RoleAdmin)
	stranger := helpers.CreateProfile(t, f.db, "stranger", models.RoleTalent)

	gig := f.publishedGig(t, owner, 2)

	_, err := f.svc.GigService.CancelGig(f.ctx, f.db, stranger.UserID, gig.ID, "spam")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	cancelled, err := f.svc.GigService.CancelGig(f.ctx, f.db, admin.UserID, gig.ID, " venue lost ")
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusCancelled, cancelled.Status)
	assert.Equal(t, "venue lost", f.log.last(models.EventGigCancelled).PayloadString("reason"))

	_, err = f.svc.GigService.CancelGig(f.ctx, f.db, owner.UserID, gig.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestListPublishedGigs(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfileWithTier(t, f.db, "owner", models.TierPro, models.RoleContributor)

	f.publishedGig(t, owner, 1)
	paid := f.gigRequest(owner, 1)
	paid.CompensationType = "PAID"
	paid.Location.Text = "Astana"
	_, err := f.svc.GigService.CreateGig(f.ctx, f.db, paid)
	require.NoError(t, err)

	draft := f.gigRequest(owner, 1)
	draft.Publish = false
	_, err = f.svc.GigService.CreateGig(f.ctx, f.db, draft)
	require.NoError(t, err)

	all, err := f.svc.GigService.ListPublishedGigs(f.ctx, f.db, &dto.GigListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	paidOnly, err := f.svc.GigService.ListPublishedGigs(f.ctx, f.db, &dto.GigListQuery{CompensationType: "paid"})
	require.NoError(t, err)
	require.Len(t, paidOnly.Gigs, 1)
	assert.Equal(t, "Astana", paidOnly.Gigs[0].Location.Text)
	assert.True(t, paidOnly.Gigs[0].AcceptingNow)

	// после дедлайна open_only ничего не находит
	f.now = testNow.Add(25 * time.Hour)
	open, err := f.svc.GigService.ListPublishedGigs(f.ctx, f.db, &dto.GigListQuery{OpenOnly: true})
	require.NoError(t, err)
	assert.Zero(t, open.Total)

	mine, err := f.svc.GigService.ListMyGigs(f.ctx, f.db, owner.UserID, repositories.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, mine.Total)
}

// --- Admission control ---

func TestApplyToGig_ConcurrentLastSlot(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.publishedGig(t, owner, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, talent := range []*models.UserProfile{a, b} {
		wg.Add(1)
		go func(i int, talent *models.UserProfile) {
			defer wg.Done()
			_, errs[i] = f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: gig.ID, ApplicantID: talent.UserID})
		}(i, talent)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.ErrGigFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)

	count, err := f.repos.Applications.CountByGig(f.db, gig.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestApplyToGig_ConcurrentDuplicates(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	gig := f.publishedGig(t, owner, 10)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: gig.ID, ApplicantID: talent.UserID})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	}
	assert.Equal(t, 1, ok)

	count, err := f.repos.Applications.CountByGig(f.db, gig.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestApplyToGig_CheckOrder(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor, models.RoleTalent)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	contributor := helpers.CreateProfile(t, f.db, "contrib", models.RoleContributor)
	gig := f.publishedGig(t, owner, 5)

	apply := func(gigID, userID string) error {
		_, err := f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: gigID, ApplicantID: userID})
		return err
	}

	assert.ErrorIs(t, apply("missing", talent.UserID), apperrors.ErrGigNotFound)
	// несуществующий гиг проверяется раньше несуществующего заявителя
	assert.ErrorIs(t, apply("missing", "nobody"), apperrors.ErrGigNotFound)
	assert.ErrorIs(t, apply(gig.ID, "nobody"), apperrors.ErrApplicantNotFound)
	assert.ErrorIs(t, apply(gig.ID, contributor.UserID), apperrors.ErrNotTalent)
	assert.ErrorIs(t, apply(gig.ID, owner.UserID), apperrors.ErrUnauthorized)

	require.NoError(t, apply(gig.ID, talent.UserID))
	assert.ErrorIs(t, apply(gig.ID, talent.UserID), apperrors.ErrDuplicateApplication)

	// после дедлайна прием закрыт, даже если статус еще PUBLISHED
	f.now = gig.ApplicationDeadline.Add(time.Second)
	assert.ErrorIs(t, apply(gig.ID, "nobody"), apperrors.ErrGigNotAcceptingApplications)
}

func TestApplyToGig_MonthlyQuota(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfileWithTier(t, f.db, "owner", models.TierPro, models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)

	limit := models.DefaultTierLimits[models.TierFree].ApplicationsPerMonth
	for i := 0; i < limit; i++ {
		f.apply(t, f.publishedGig(t, owner, 3), talent)
	}

	extra := f.publishedGig(t, owner, 3)
	before, err := f.repos.Users.FindByUserID(f.db, talent.UserID)
	require.NoError(t, err)

	_, err = f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: extra.ID, ApplicantID: talent.UserID})
	assert.ErrorIs(t, err, apperrors.ErrApplicationQuotaExceeded)

	// отказ ничего не записал
	applied, err := f.repos.Applications.CountByApplicant(f.db, talent.UserID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, limit, applied)
	onExtra, err := f.repos.Applications.CountByGig(f.db, extra.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, onExtra)
	after, err := f.repos.Users.FindByUserID(f.db, talent.UserID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestApplyToGig_NotificationFailureDoesNotFailApplication(t *testing.T) {
	f := setup(t)
	f.notifier.fail = true
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	gig := f.publishedGig(t, owner, 2)

	app, err := f.svc.ApplicationService.ApplyToGig(f.ctx, f.db, &dto.ApplyToGigRequest{GigID: gig.ID, ApplicantID: talent.UserID, Note: " hi "})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "hi", app.Note)
	assert.Equal(t, 1, f.log.count(models.EventApplicationSubmitted))
}

func TestApplyToGig_NotifiesOwner(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	f.apply(t, f.publishedGig(t, owner, 2), talent)

	require.Len(t, f.notifier.pushes, 1)
	assert.Equal(t, owner.UserID, f.notifier.pushes[0].userID)
	assert.Equal(t, string(models.EventApplicationSubmitted), f.notifier.pushes[0].kind)
}

func TestReviewApplication(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.publishedGig(t, owner, 2)
	appA := f.apply(t, gig, a)
	appB := f.apply(t, gig, b)

	_, err := f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, a.UserID, appA.ID, models.ApplicationStatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	shortlisted, err := f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, appA.ID, models.ApplicationStatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusShortlisted, shortlisted.Status)

	_, err = f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, appA.ID, models.ApplicationStatusPending)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	_, err = f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, appB.ID, models.ApplicationStatusDeclined)
	require.NoError(t, err)
	evt := f.log.last(models.EventApplicationStatusChanged)
	assert.Equal(t, b.UserID, evt.PayloadString("applicant_id"))
	assert.Equal(t, string(models.ApplicationStatusDeclined), evt.PayloadString("to"))

	list, err := f.svc.ApplicationService.ListGigApplications(f.ctx, f.db, owner.UserID, gig.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)

	_, err = f.svc.ApplicationService.ListGigApplications(f.ctx, f.db, a.UserID, gig.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	mine, err := f.svc.ApplicationService.ListMyApplications(f.ctx, f.db, a.UserID, repositories.Pagination{})
	require.NoError(t, err)
	require.Len(t, mine.Applications, 1)
	assert.Equal(t, appA.ID, mine.Applications[0].ID)
}

func TestReviewApplication_AcceptedCapped(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.publishedGig(t, owner, 2)
	appA := f.apply(t, gig, a)
	appB := f.apply(t, gig, b)

	// уменьшаем вместимость напрямую, чтобы заявок стало больше мест
	require.NoError(t, f.db.Model(&models.Gig{}).Where("id = ?", gig.ID).Update("max_applicants", 1).Error)

	_, err := f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, appA.ID, models.ApplicationStatusAccepted)
	require.NoError(t, err)
	_, err = f.svc.ApplicationService.ReviewApplication(f.ctx, f.db, owner.UserID, appB.ID, models.ApplicationStatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrGigFull)

	accepted := models.ApplicationStatusAccepted
	count, err := f.repos.Applications.CountByGig(f.db, gig.ID, &accepted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

// --- Showcase consensus ---

func TestCreateShowcase_Validation(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	outsider := helpers.CreateProfile(t, f.db, "outsider", models.RoleTalent)
	media := helpers.CreateUploads(t, f.db, owner.UserID, 3)

	open := f.publishedGig(t, owner, 2)
	_, err := f.svc.ShowcaseService.CreateShowcase(f.ctx, f.db, &dto.CreateShowcaseRequest{GigID: open.ID, CreatorID: owner.UserID, MediaIDs: media})
	assert.ErrorIs(t, err, apperrors.ErrGigNotCompleted)

	gig := f.completedGig(t, owner, talent)
	create := func(mut func(r *dto.CreateShowcaseRequest)) error {
		req := &dto.CreateShowcaseRequest{GigID: gig.ID, CreatorID: owner.UserID, MediaIDs: media}
		mut(req)
		_, err := f.svc.ShowcaseService.CreateShowcase(f.ctx, f.db, req)
		return err
	}

	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.GigID = "missing" }), apperrors.ErrGigNotFound)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.CreatorID = talent.UserID }), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.TalentIDs = []string{owner.UserID} }), apperrors.ErrSelfApprovalForbidden)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.TalentIDs = []string{outsider.UserID} }), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.TalentIDs = []string{"ghost"} }), apperrors.ErrUserNotFound)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.MediaIDs = media[:2] }), apperrors.ErrInvalidMediaCount)
	tooMany := helpers.CreateUploads(t, f.db, owner.UserID, models.MaxShowcaseMedia+1)
	assert.ErrorIs(t, create(func(r *dto.CreateShowcaseRequest) { r.MediaIDs = tooMany }), apperrors.ErrInvalidMediaCount)

	err = create(func(r *dto.CreateShowcaseRequest) { r.MediaIDs = []string{media[0], media[1], "not-uploaded"} })
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	// ни одна неудачная попытка не оставила шоукейса
	stored, err := f.repos.Showcases.CountByUser(f.db, owner.UserID, nil)
	require.NoError(t, err)
	assert.Zero(t, stored)
	assert.Zero(t, f.log.count(models.EventShowcaseCreated))

	// без talent_ids обязательными становятся все принятые таланты
	require.NoError(t, create(func(r *dto.CreateShowcaseRequest) {}))
	stored, err = f.repos.Showcases.CountByUser(f.db, owner.UserID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored)
	created := f.log.last(models.EventShowcaseCreated)
	assert.Equal(t, []string{talent.UserID}, created.PayloadStrings("talent_ids"))
}

func TestApproveShowcase_TwoTalentsReachConsensus(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.completedGig(t, owner, a, b)
	showcase := f.showcase(t, gig, owner, a, b)

	assert.Equal(t, models.ShowcaseStatusPendingApproval, showcase.Status)
	assert.Equal(t, models.VisibilityPrivate, showcase.Visibility)

	s, err := f.act(showcase, a, "approve", "")
	require.NoError(t, err)
	assert.Equal(t, models.ShowcaseStatusPendingApproval, s.Status)
	assert.Equal(t, models.VisibilityPrivate, s.Visibility)
	assert.Zero(t, f.log.count(models.EventShowcaseApproved))

	s, err = f.act(showcase, b, "approve", "love it")
	require.NoError(t, err)
	assert.Equal(t, models.ShowcaseStatusApproved, s.Status)
	assert.Equal(t, models.VisibilityPublic, s.Visibility)
	require.NotNil(t, s.PublishedAt)
	assert.Equal(t, 1, f.log.count(models.EventShowcaseApproved))

	evt := f.log.last(models.EventShowcaseApproved)
	assert.Equal(t, gig.ID, evt.PayloadString("gig_id"))
	assert.Equal(t, owner.UserID, evt.PayloadString("creator_id"))
	assert.ElementsMatch(t, []string{a.UserID, b.UserID}, evt.PayloadStrings("talent_ids"))

	// медиа публичного шоукейса становятся публичными
	uploads, err := f.repos.Uploads.FindByIDs(f.db, s.MediaIDs.Data())
	require.NoError(t, err)
	for _, u := range uploads {
		assert.True(t, u.IsPublic)
	}

	// публичный шоукейс виден любому
	_, err = f.svc.ShowcaseService.GetShowcase(f.ctx, f.db, "anyone", showcase.ID)
	assert.NoError(t, err)
}

func TestApproveShowcase_RequestChangesAfterApproval(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.completedGig(t, owner, a, b)
	showcase := f.showcase(t, gig, owner, a, b)

	_, err := f.act(showcase, a, "approve", "")
	require.NoError(t, err)

	_, err = f.act(showcase, b, "request_changes", "  ")
	assert.ErrorIs(t, err, apperrors.ErrFeedbackRequired)

	s, err := f.act(showcase, b, "request_changes", "blurry photo 3")
	require.NoError(t, err)
	assert.Equal(t, models.ShowcaseStatusChangesRequested, s.Status)
	assert.Equal(t, models.VisibilityPrivate, s.Visibility)

	evt := f.log.last(models.EventShowcaseChangesRequested)
	assert.Equal(t, "blurry photo 3", evt.PayloadString("note"))
	assert.Equal(t, b.UserID, evt.PayloadString("requested_by"))

	// пока создатель не переотправит, одобрять нельзя
	_, err = f.act(showcase, a, "approve", "")
	assert.NoError(t, err, "a already approved, repeat is a no-op")
	_, err = f.act(showcase, b, "approve", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	// приватный шоукейс посторонним не виден
	_, err = f.svc.ShowcaseService.GetShowcase(f.ctx, f.db, "anyone", showcase.ID)
	assert.ErrorIs(t, err, apperrors.ErrShowcaseNotFound)
	visible, err := f.svc.ShowcaseService.ListGigShowcases(f.ctx, f.db, a.UserID, gig.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestApproveShowcase_Resubmit(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	gig := f.completedGig(t, owner, a)
	showcase := f.showcase(t, gig, owner, a)

	_, err := f.act(showcase, a, "request_changes", "swap the cover")
	require.NoError(t, err)

	caption := "Take two"
	_, err = f.svc.ShowcaseService.ResubmitShowcase(f.ctx, f.db, a.UserID, showcase.ID, &dto.ResubmitShowcaseRequest{Caption: &caption})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	s, err := f.svc.ShowcaseService.ResubmitShowcase(f.ctx, f.db, owner.UserID, showcase.ID, &dto.ResubmitShowcaseRequest{
		MediaIDs: helpers.CreateUploads(t, f.db, owner.UserID, 4),
		Caption:  &caption,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ShowcaseStatusPendingApproval, s.Status)
	assert.Equal(t, "Take two", s.Caption)
	assert.Len(t, s.MediaIDs.Data(), 4)
	for _, ap := range s.Approvals {
		assert.Equal(t, models.ApprovalActionPending, ap.Action)
	}
	assert.Equal(t, 1, f.log.count(models.EventShowcaseResubmitted))

	s, err = f.act(showcase, a, "approve", "")
	require.NoError(t, err)
	assert.True(t, s.IsPublic())
}

func TestApproveShowcase_SelfApprovalForbidden(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	gig := f.completedGig(t, owner, a)
	showcase := f.showcase(t, gig, owner, a)

	for _, action := range []string{"approve", "request_changes"} {
		_, err := f.act(showcase, owner, action, "note")
		assert.ErrorIs(t, err, apperrors.ErrSelfApprovalForbidden, action)
	}

	stored, err := f.repos.Showcases.FindByID(f.db, showcase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalActionPending, stored.Approvals[0].Action)
}

func TestApproveShowcase_Authorization(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	b := helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent)
	gig := f.completedGig(t, owner, a, b)
	showcase := f.showcase(t, gig, owner, a)

	// b принят на гиг, но не входит в обязательные участники шоукейса
	_, err := f.act(showcase, b, "approve", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.ShowcaseService.ApproveShowcase(f.ctx, f.db, &dto.ApproveShowcaseRequest{ShowcaseID: "missing", UserID: a.UserID, Action: "approve"})
	assert.ErrorIs(t, err, apperrors.ErrShowcaseNotFound)

	_, err = f.svc.ShowcaseService.ApproveShowcase(f.ctx, f.db, &dto.ApproveShowcaseRequest{ShowcaseID: showcase.ID, UserID: "ghost", Action: "approve"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.act(showcase, a, "reject", "")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestApproveShowcase_Idempotent(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	a := helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent)
	gig := f.completedGig(t, owner, a)
	showcase := f.showcase(t, gig, owner, a)

	first, err := f.act(showcase, a, "approve", "")
	require.NoError(t, err)
	second, err := f.act(showcase, a, "approve", "")
	require.NoError(t, err)

	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, f.log.count(models.EventShowcaseApproved))

	var approvals int64
	require.NoError(t, f.db.Model(&models.ShowcaseApproval{}).Where("showcase_id = ?", showcase.ID).Count(&approvals).Error)
	assert.EqualValues(t, 1, approvals)

	// одобренный шоукейс нельзя откатить запросом правок
	_, err = f.act(showcase, a, "request_changes", "too late")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestApproveShowcase_ConcurrentApprovalsPublishOnce(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talents := []*models.UserProfile{
		helpers.CreateProfile(t, f.db, "talent-a", models.RoleTalent),
		helpers.CreateProfile(t, f.db, "talent-b", models.RoleTalent),
		helpers.CreateProfile(t, f.db, "talent-c", models.RoleTalent),
	}
	gig := f.completedGig(t, owner, talents...)
	showcase := f.showcase(t, gig, owner, talents...)

	var wg sync.WaitGroup
	for _, talent := range talents {
		wg.Add(1)
		go func(u *models.UserProfile) {
			defer wg.Done()
			_, err := f.act(showcase, u, "approve", "")
			assert.NoError(t, err)
		}(talent)
	}
	wg.Wait()

	stored, err := f.repos.Showcases.FindByID(f.db, showcase.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPublic())
	assert.Equal(t, 1, f.log.count(models.EventShowcaseApproved))
}

func TestCreateShowcase_PublicQuota(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfileWithTier(t, f.db, "owner", models.TierPro, models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)

	limit := models.DefaultTierLimits[models.TierFree].ShowcasesPerMonth
	gig := f.completedGig(t, owner, talent)
	for i := 0; i < limit; i++ {
		s := f.showcase(t, gig, owner, talent)
		_, err := f.act(s, talent, "approve", "")
		require.NoError(t, err)
	}

	_, err := f.svc.ShowcaseService.CreateShowcase(f.ctx, f.db, &dto.CreateShowcaseRequest{
		GigID:     gig.ID,
		CreatorID: owner.UserID,
		MediaIDs:  helpers.CreateUploads(t, f.db, owner.UserID, 3),
	})
	assert.ErrorIs(t, err, apperrors.ErrShowcaseQuotaExceeded)
}

func TestCreateShowcase_MediaMustBelongToParties(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	stranger := helpers.CreateProfile(t, f.db, "stranger", models.RoleTalent)
	gig := f.completedGig(t, owner, talent)

	foreign := helpers.CreateUploads(t, f.db, stranger.UserID, 3)
	own := helpers.CreateUploads(t, f.db, owner.UserID, 2)
	create := func(media []string) (*models.Showcase, error) {
		return f.svc.ShowcaseService.CreateShowcase(f.ctx, f.db, &dto.CreateShowcaseRequest{
			GigID:     gig.ID,
			CreatorID: owner.UserID,
			MediaIDs:  media,
		})
	}

	_, err := create(foreign)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = create([]string{own[0], foreign[0], own[1]})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	stored, err := f.repos.Showcases.CountByUser(f.db, owner.UserID, nil)
	require.NoError(t, err)
	assert.Zero(t, stored)

	// файлы принятого таланта допустимы
	media := append(own, helpers.CreateUploads(t, f.db, talent.UserID, 1)...)
	showcase, err := create(media)
	require.NoError(t, err)

	_, err = f.act(showcase, talent, "request_changes", "different cover")
	require.NoError(t, err)
	_, err = f.svc.ShowcaseService.ResubmitShowcase(f.ctx, f.db, owner.UserID, showcase.ID,
		&dto.ResubmitShowcaseRequest{MediaIDs: foreign})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	caption := "Take two"
	_, err = f.svc.ShowcaseService.ResubmitShowcase(f.ctx, f.db, owner.UserID, showcase.ID,
		&dto.ResubmitShowcaseRequest{Caption: &caption})
	require.NoError(t, err)
	published, err := f.act(showcase, talent, "approve", "")
	require.NoError(t, err)
	require.True(t, published.IsPublic())

	for _, id := range media {
		u, err := f.repos.Uploads.FindByID(f.db, id)
		require.NoError(t, err)
		assert.True(t, u.IsPublic, id)
	}
	// файлы постороннего остались приватными
	for _, id := range foreign {
		u, err := f.repos.Uploads.FindByID(f.db, id)
		require.NoError(t, err)
		assert.Equal(t, stranger.UserID, u.UserID)
		assert.False(t, u.IsPublic, id)
	}
}

func TestCreateShowcase_DuplicateMediaRejected(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	gig := f.completedGig(t, owner, talent)

	media := helpers.CreateUploads(t, f.db, owner.UserID, 1)
	repeated := []string{media[0], media[0], media[0]}

	bus := events.NewInMemoryBus(events.WithSynchronousDelivery())
	withoutUploads := services.NewShowcaseService(f.repos.Showcases, f.repos.Gigs, f.repos.Applications, f.repos.Users,
		nil, services.NewQuotaPolicy(nil), bus, func() time.Time { return f.now })

	for name, svc := range map[string]services.ShowcaseService{
		"with upload repository":    f.svc.ShowcaseService,
		"without upload repository": withoutUploads,
	} {
		_, err := svc.CreateShowcase(f.ctx, f.db, &dto.CreateShowcaseRequest{GigID: gig.ID, CreatorID: owner.UserID, MediaIDs: repeated})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok, name)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code, name)
	}

	stored, err := f.repos.Showcases.CountByUser(f.db, owner.UserID, nil)
	require.NoError(t, err)
	assert.Zero(t, stored)
}

// Операции с месячной квотой поднимают версию профиля в своей транзакции:
// вторая транзакция за той же квотой не проходит незамеченной.
func TestQuotaChecks_BumpProfileVersion(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)

	load := func(u *models.UserProfile) *models.UserProfile {
		t.Helper()
		p, err := f.repos.Users.FindByUserID(f.db, u.UserID)
		require.NoError(t, err)
		return p
	}
	requireStale := func(stale *models.UserProfile) {
		t.Helper()
		fresh := load(stale)
		assert.Equal(t, stale.Version+1, fresh.Version, stale.Handle)
		stale.DisplayName = "stale"
		assert.ErrorIs(t, f.repos.Users.Save(f.db, stale), repositories.ErrVersionConflict, stale.Handle)
	}

	ownerBefore := load(owner)
	gig := f.publishedGig(t, owner, 3)
	requireStale(ownerBefore)

	talentBefore := load(talent)
	f.apply(t, gig, talent)
	requireStale(talentBefore)

	done := f.completedGig(t, owner, talent)
	creatorBefore, partyBefore := load(owner), load(talent)
	f.showcase(t, done, owner, talent)
	requireStale(creatorBefore)
	requireStale(partyBefore)
}

type recordingMedia struct {
	storage.MediaStorage
	deleted []string
}

func (m *recordingMedia) Delete(_ context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	return nil
}

func TestDeleteUpload_KeepsMediaOfUnpublishedShowcase(t *testing.T) {
	f := setup(t)
	owner := helpers.CreateProfile(t, f.db, "owner", models.RoleContributor)
	talent := helpers.CreateProfile(t, f.db, "talent", models.RoleTalent)
	files := &recordingMedia{}
	uploads := services.NewUploadService(f.repos.Uploads, f.repos.Showcases, files, 0)

	gig := f.completedGig(t, owner, talent)
	showcase := f.showcase(t, gig, owner, talent)
	referenced := showcase.MediaIDs.Data()[0]

	requireRefused := func() {
		t.Helper()
		err := uploads.DeleteUpload(f.ctx, f.db, owner.UserID, referenced)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeInvalidOperation, appErr.Code)
		_, err = f.repos.Uploads.FindByID(f.db, referenced)
		require.NoError(t, err)
	}

	requireRefused()
	_, err := f.act(showcase, talent, "request_changes", "")
	require.NoError(t, err)
	requireRefused()

	caption := "Take two"
	_, err = f.svc.ShowcaseService.ResubmitShowcase(f.ctx, f.db, owner.UserID, showcase.ID, &dto.ResubmitShowcaseRequest{Caption: &caption})
	require.NoError(t, err)
	_, err = f.act(showcase, talent, "approve", "")
	require.NoError(t, err)
	requireRefused()
	assert.Empty(t, files.deleted)

	// файл вне шоукейсов удаляется вместе с записью
	spare := helpers.CreateUploads(t, f.db, owner.UserID, 1)[0]
	stored, err := f.repos.Uploads.FindByID(f.db, spare)
	require.NoError(t, err)
	require.NoError(t, uploads.DeleteUpload(f.ctx, f.db, owner.UserID, spare))
	_, err = f.repos.Uploads.FindByID(f.db, spare)
	assert.ErrorIs(t, err, repositories.ErrUploadNotFound)
	assert.Equal(t, []string{stored.Path}, files.deleted)
}
