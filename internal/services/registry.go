package services

import (
	"gigboard_backend/internal/config"
	"gigboard_backend/internal/events"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/storage"
)

// Repositories - набор репозиториев, общий для сервисов
type Repositories struct {
	Gigs          repositories.GigRepository
	Applications  repositories.ApplicationRepository
	Showcases     repositories.ShowcaseRepository
	Users         repositories.UserRepository
	Uploads       repositories.UploadRepository
	Notifications repositories.NotificationRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Gigs:          repositories.NewGigRepository(),
		Applications:  repositories.NewApplicationRepository(),
		Showcases:     repositories.NewShowcaseRepository(),
		Users:         repositories.NewUserRepository(),
		Uploads:       repositories.NewUploadRepository(),
		Notifications: repositories.NewNotificationRepository(),
	}
}

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	GigService         GigService
	ApplicationService ApplicationService
	ShowcaseService    ShowcaseService
	UploadService      UploadService
	InboxService       InboxService
	ProfileService     ProfileService
}

func NewServiceContainer(
	cfg *config.Config,
	repos *Repositories,
	bus events.Bus,
	notifier NotificationService,
	media storage.MediaStorage,
	clock Clock,
) *ServiceContainer {
	quotas := NewQuotaPolicy(cfg.Quotas)

	return &ServiceContainer{
		GigService:         NewGigService(repos.Gigs, repos.Applications, repos.Users, quotas, bus, clock),
		ApplicationService: NewApplicationService(repos.Gigs, repos.Applications, repos.Users, notifier, quotas, bus, clock),
		ShowcaseService:    NewShowcaseService(repos.Showcases, repos.Gigs, repos.Applications, repos.Users, repos.Uploads, quotas, bus, clock),
		UploadService:      NewUploadService(repos.Uploads, repos.Showcases, media, cfg.Upload.MaxUserStorage),
		InboxService:       NewInboxService(repos.Notifications, clock),
		ProfileService:     NewProfileService(repos.Users, quotas, clock),
	}
}
