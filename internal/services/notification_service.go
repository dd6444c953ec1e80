package services

import (
	"context"
	"time"

	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services/dto"

	"gorm.io/gorm"
)

// InboxService - лента push-уведомлений пользователя
type InboxService interface {
	GetUserNotifications(ctx context.Context, db *gorm.DB, userID string, query *dto.NotificationListQuery) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, db *gorm.DB, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	GetUnreadCount(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	CleanReadNotifications(ctx context.Context, db *gorm.DB, userID string, olderThan time.Duration) error
}

type inboxService struct {
	notificationRepo repositories.NotificationRepository
	now              Clock
}

func NewInboxService(notificationRepo repositories.NotificationRepository, clock Clock) InboxService {
	if clock == nil {
		clock = systemClock
	}
	return &inboxService{notificationRepo: notificationRepo, now: clock}
}

func (s *inboxService) GetUserNotifications(ctx context.Context, db *gorm.DB, userID string, query *dto.NotificationListQuery) (*dto.NotificationListResponse, error) {
	db = db.WithContext(ctx)
	criteria := repositories.NotificationCriteria{
		UnreadOnly: query.UnreadOnly,
		Type:       query.Type,
		Pagination: repositories.Pagination{Page: query.Page, PageSize: query.PageSize},
	}

	items, total, err := s.notificationRepo.FindByUser(db, userID, criteria)
	if err != nil {
		return nil, handleRepoError(err)
	}
	unread, err := s.notificationRepo.CountUnread(db, userID)
	if err != nil {
		return nil, handleRepoError(err)
	}

	resp := &dto.NotificationListResponse{
		Notifications: make([]*dto.NotificationResponse, 0, len(items)),
		Total:         total,
		Unread:        unread,
	}
	for i := range items {
		resp.Notifications = append(resp.Notifications, dto.NewNotificationResponse(&items[i]))
	}
	return resp, nil
}

func (s *inboxService) MarkAsRead(ctx context.Context, db *gorm.DB, userID, notificationID string) error {
	return handleRepoError(s.notificationRepo.MarkAsRead(db.WithContext(ctx), userID, notificationID, s.now()))
}

func (s *inboxService) MarkAllAsRead(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	n, err := s.notificationRepo.MarkAllAsRead(db.WithContext(ctx), userID, s.now())
	return n, handleRepoError(err)
}

func (s *inboxService) GetUnreadCount(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	n, err := s.notificationRepo.CountUnread(db.WithContext(ctx), userID)
	return n, handleRepoError(err)
}

// CleanReadNotifications удаляет прочитанные старше olderThan. userID == "" - по всем пользователям.
func (s *inboxService) CleanReadNotifications(ctx context.Context, db *gorm.DB, userID string, olderThan time.Duration) error {
	return handleRepoError(s.notificationRepo.DeleteRead(db.WithContext(ctx), userID, s.now().Add(-olderThan)))
}
