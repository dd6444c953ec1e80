package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gigboard_backend/database"
	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/config"
	"gigboard_backend/internal/email"
	"gigboard_backend/internal/events"
	"gigboard_backend/internal/handlers"
	"gigboard_backend/internal/imageprocessor"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/middleware"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/notifications"
	"gigboard_backend/internal/repositories"
	"gigboard_backend/internal/routes"
	"gigboard_backend/internal/services"
	"gigboard_backend/internal/storage"
	"gigboard_backend/internal/validator"
	"gigboard_backend/internal/workers"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/ws"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// время жизни ключей дедупликации событий
const dedupeTTL = 24 * time.Hour

// App - собранное приложение: роутер и фоновые компоненты
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Router   *gin.Engine
	Services *services.ServiceContainer
	Tokens   *auth.TokenManager

	bus         *events.InMemoryBus
	hub         *ws.Hub
	limiter     *middleware.RateLimiter
	queue       notifications.TaskQueue
	worker      *notifications.Worker
	inboxWorker *workers.InboxWorker
	rdb         *redis.Client
	amqpConn    *amqp.Connection
	forwarder   *events.AMQPForwarder
	stopWorkers context.CancelFunc
}

type options struct {
	syncEvents bool
	clock      services.Clock
	mailer     email.Provider
}

type Option func(*options)

// WithSynchronousEvents доставляет события подписчикам в вызывающей горутине
func WithSynchronousEvents() Option {
	return func(o *options) { o.syncEvents = true }
}

func WithClock(clock services.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithMailer(mailer email.Provider) Option {
	return func(o *options) { o.mailer = mailer }
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env == "development")

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected")

	if err := seedFirstAdmin(db, cfg); err != nil {
		logger.Fatal("Failed to seed first admin profile", "error", err)
	}

	application, err := New(cfg, db)
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		logger.Fatal("Failed to start background workers", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}

// New собирает зависимости: шину событий, доставку уведомлений, хранилище, сервисы и роутер
func New(cfg *config.Config, db *gorm.DB, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, DB: db}
	repos := services.NewRepositories()

	// --- события ---
	var busOpts []events.Option
	if o.syncEvents {
		busOpts = append(busOpts, events.WithSynchronousDelivery())
	}
	a.bus = events.NewInMemoryBus(busOpts...)
	dedupe := a.initDeduplicator()
	a.initForwarder()

	// --- уведомления ---
	mailer := o.mailer
	if mailer == nil {
		mailer = email.NewProvider(cfg)
	}
	a.hub = ws.NewHub()
	go a.hub.Run()
	processor := notifications.NewProcessor(db, repos.Notifications, mailer, nil).WithLiveSink(a.hub)
	a.queue = notifications.NewTaskQueue(cfg, processor.Process)
	if a.queue.IsAsync() {
		a.worker = notifications.NewWorker(cfg, processor.Process)
	}
	dispatcher := notifications.NewDispatcher(a.queue)
	notifications.NewSubscribers(db, dispatcher, dedupe, repos.Gigs, repos.Applications, repos.Users).Register(a.bus)

	// --- хранилище ---
	store, err := storage.NewStorage(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	media := storage.NewMediaService(store, imageprocessor.NewProcessor(cfg.Upload.ImageQuality), cfg.Upload.MaxSize)
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	// --- сервисы и HTTP ---
	a.Services = services.NewServiceContainer(cfg, repos, a.bus, dispatcher, media, o.clock)
	a.inboxWorker = workers.NewInboxWorker(db, a.Services.InboxService,
		time.Duration(cfg.Worker.InboxRetentionDays)*24*time.Hour)

	a.Tokens = auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	appHandlers := handlers.NewAppHandlers(validator.New(), a.Services, store, repos.Uploads, cfg.Upload.MaxSize, a.hub)
	guards := &handlers.Guards{
		Auth:     middleware.AuthMiddleware(a.Tokens),
		Optional: middleware.OptionalAuth(a.Tokens),
		Admin:    middleware.RequireRole(models.RoleAdmin),
	}

	a.Router = initializeGinRouter(cfg, db, a.limiter)
	routes.RegisterRoutes(a.Router, db, appHandlers, guards)
	return a, nil
}

// Start запускает воркер очереди уведомлений (если она асинхронная) и очистку ленты
func (a *App) Start(ctx context.Context) error {
	ctx, a.stopWorkers = context.WithCancel(ctx)
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			return err
		}
	}
	a.inboxWorker.Start(ctx)
	return nil
}

// Close останавливает фоновые компоненты и закрывает внешние соединения
func (a *App) Close() {
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			logger.Warn("failed to close notification queue", "error", err.Error())
		}
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.forwarder != nil {
		if err := a.forwarder.Close(); err != nil {
			logger.Warn("failed to close amqp channel", "error", err.Error())
		}
	}
	if a.amqpConn != nil {
		a.amqpConn.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
}

// initDeduplicator: Redis, если включен и доступен, иначе память процесса
func (a *App) initDeduplicator() events.Deduplicator {
	if a.Config.Redis.Enabled {
		rdb, err := events.NewRedisClient(a.Config)
		if err == nil {
			a.rdb = rdb
			logger.Info("Event deduplication initialized", "store", "redis")
			return events.NewRedisDeduplicator(rdb, dedupeTTL)
		}
		logger.Warn("redis unavailable, using in-memory event deduplication", "error", err.Error())
	}
	return events.NewMemoryDeduplicator(dedupeTTL)
}

// initForwarder публикует доменные события в AMQP. Брокер необязателен: без него API работает.
func (a *App) initForwarder() {
	if !a.Config.RabbitMQ.Enabled {
		return
	}
	conn, err := amqp.Dial(a.Config.RabbitMQ.URL)
	if err != nil {
		logger.Warn("rabbitmq unavailable, domain events stay in-process", "error", err.Error())
		return
	}
	fwd, err := events.NewAMQPForwarder(conn, a.Config.RabbitMQ.Exchange)
	if err != nil {
		conn.Close()
		logger.Warn("failed to declare event exchange", "exchange", a.Config.RabbitMQ.Exchange, "error", err.Error())
		return
	}
	fwd.Attach(a.bus)
	a.amqpConn = conn
	a.forwarder = fwd
	logger.Info("AMQP event forwarding enabled", "exchange", a.Config.RabbitMQ.Exchange)
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB, limiter *middleware.RateLimiter) *gin.Engine {
	switch cfg.Server.Env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(limiter.Middleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

// seedFirstAdmin создает профиль администратора для first_admin.user_id, если его еще нет
func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	admin := cfg.FirstAdmin
	if admin.UserID == "" {
		logger.Warn("first_admin.user_id is not set. Skipping admin seeding.")
		return nil
	}

	repo := repositories.NewUserRepository()
	profile, err := repo.FindByUserID(db, admin.UserID)
	switch {
	case err == nil:
		if profile.Has(models.RoleAdmin) {
			logger.Info("Admin profile already exists. Skipping creation.", "user_id", admin.UserID)
			return nil
		}
		profile.Roles = profile.Roles.With(models.RoleAdmin)
		profile.UpdatedAt = time.Now().UTC()
	case errors.Is(err, repositories.ErrUserNotFound):
		profile = &models.UserProfile{
			UserID:           admin.UserID,
			Handle:           admin.Handle,
			DisplayName:      "Administrator",
			Email:            admin.Email,
			Roles:            models.NewRoleSet(models.RoleAdmin),
			SubscriptionTier: models.TierPro,
		}
	default:
		return fmt.Errorf("failed to check for admin profile: %w", err)
	}

	if err := repo.Save(db, profile); err != nil {
		return fmt.Errorf("failed to save admin profile: %w", err)
	}
	logger.Info("Admin profile seeded", "user_id", admin.UserID, "handle", profile.Handle)
	return nil
}
