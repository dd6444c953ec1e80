package handlers

import (
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/storage"
	"gigboard_backend/internal/validator"
	"gigboard_backend/ws"

	"github.com/gin-gonic/gin"
)

// Guards - middleware доступа, которые хендлеры навешивают на свои группы
type Guards struct {
	Auth     gin.HandlerFunc // обязательный bearer-токен
	Optional gin.HandlerFunc // токен разбирается, если есть
	Admin    gin.HandlerFunc // роль ADMIN, ставится после Auth
}

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	GigHandler          *GigHandler
	ApplicationHandler  *ApplicationHandler
	ShowcaseHandler     *ShowcaseHandler
	NotificationHandler *NotificationHandler
	UploadHandler       *UploadHandler
	FileHandler         *FileHandler
	ProfileHandler      *ProfileHandler
}

func NewAppHandlers(
	v *validator.Validator,
	svc *services.ServiceContainer,
	files storage.Storage,
	uploadRepo repositories.UploadRepository,
	maxUploadSize int64,
	live *ws.Hub,
) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		GigHandler:          NewGigHandler(base, svc.GigService),
		ApplicationHandler:  NewApplicationHandler(base, svc.ApplicationService),
		ShowcaseHandler:     NewShowcaseHandler(base, svc.ShowcaseService),
		NotificationHandler: NewNotificationHandler(base, svc.InboxService, live),
		UploadHandler:       NewUploadHandler(base, svc.UploadService, maxUploadSize),
		FileHandler:         NewFileHandler(base, files, uploadRepo),
		ProfileHandler:      NewProfileHandler(base, svc.ProfileService),
	}
}
