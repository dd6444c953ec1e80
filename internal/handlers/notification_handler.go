package handlers

import (
	"net/http"
	"time"

	"gigboard_backend/internal/services"
	"gigboard_backend/internal/services/dto"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/ws"

	"github.com/gin-gonic/gin"
)

// срок хранения прочитанных уведомлений по умолчанию для ручной очистки
const defaultCleanupAge = 30 * 24 * time.Hour

type NotificationHandler struct {
	*BaseHandler
	inboxService services.InboxService
	live         *ws.Hub
}

// live может быть nil: тогда поток уведомлений не регистрируется
func NewNotificationHandler(base *BaseHandler, inboxService services.InboxService, live *ws.Hub) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:  base,
		inboxService: inboxService,
		live:         live,
	}
}

func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup, guards *Guards) {
	notifications := r.Group("/notifications")
	notifications.Use(guards.Auth)
	{
		notifications.GET("", h.GetUserNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PUT("/:notificationId/read", h.MarkAsRead)
		notifications.PUT("/read-all", h.MarkAllAsRead)
		if h.live != nil {
			notifications.GET("/stream", h.Stream)
		}
	}

	admin := r.Group("/admin/notifications")
	admin.Use(guards.Auth, guards.Admin)
	{
		admin.DELETE("/cleanup", h.CleanReadNotifications)
	}
}

func (h *NotificationHandler) GetUserNotifications(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.NotificationListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	resp, err := h.inboxService.GetUserNotifications(c.Request.Context(), h.GetDB(c), userID, &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	count, err := h.inboxService.GetUnreadCount(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.inboxService.MarkAsRead(c.Request.Context(), h.GetDB(c), userID, c.Param("notificationId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	updated, err := h.inboxService.MarkAllAsRead(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Stream - websocket с новыми уведомлениями пользователя
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	h.live.ServeWS(c, userID)
}

// CleanReadNotifications - ?older_than=720h, по умолчанию 30 дней
func (h *NotificationHandler) CleanReadNotifications(c *gin.Context) {
	olderThan := defaultCleanupAge
	if raw := c.Query("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			h.HandleServiceError(c, apperrors.NewBadRequestError("Invalid older_than duration"))
			return
		}
		olderThan = d
	}

	if err := h.inboxService.CleanReadNotifications(c.Request.Context(), h.GetDB(c), "", olderThan); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Old notifications cleaned"})
}
