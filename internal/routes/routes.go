package routes

import (
	"net/http"

	"gigboard_backend/internal/handlers"
	"gigboard_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes регистрирует HTTP API v1 и служебные маршруты.
func RegisterRoutes(ginRouter *gin.Engine, db *gorm.DB, appHandlers *handlers.AppHandlers, guards *handlers.Guards) {
	ginRouter.GET("/health", healthHandler(db))

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.GigHandler.RegisterRoutes(api, guards)
		appHandlers.ApplicationHandler.RegisterRoutes(api, guards)
		appHandlers.ShowcaseHandler.RegisterRoutes(api, guards)
		appHandlers.NotificationHandler.RegisterRoutes(api, guards)
		appHandlers.UploadHandler.RegisterRoutes(api, guards)
		appHandlers.FileHandler.RegisterRoutes(api, guards)
		appHandlers.ProfileHandler.RegisterRoutes(api, guards)
	}

	logger.Info("HTTP routes registered", "routes", len(ginRouter.Routes()))
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.CtxWithError(c.Request.Context(), "health check failed", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
