package workers

import (
	"context"
	"time"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/services"

	"gorm.io/gorm"
)

const inboxCleanupInterval = time.Hour

// InboxWorker периодически удаляет прочитанные уведомления старше retention
type InboxWorker struct {
	db        *gorm.DB
	inbox     services.InboxService
	retention time.Duration
	interval  time.Duration
}

func NewInboxWorker(db *gorm.DB, inbox services.InboxService, retention time.Duration) *InboxWorker {
	return &InboxWorker{
		db:        db,
		inbox:     inbox,
		retention: retention,
		interval:  inboxCleanupInterval,
	}
}

// Start запускает фоновую очистку; остановка через отмену ctx
func (w *InboxWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *InboxWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox worker stopped")
			return
		case <-ticker.C:
			w.cleanOnce(ctx)
		}
	}
}

func (w *InboxWorker) cleanOnce(ctx context.Context) {
	err := w.inbox.CleanReadNotifications(ctx, w.db, "", w.retention)
	logger.WorkerLog("inbox_worker", "clean_read_notifications", err)
}
