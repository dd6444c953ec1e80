package middleware

import (
	"errors"
	"strings"

	"gigboard_backend/internal/auth"
	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"
	"gigboard_backend/pkg/apperrors"
	"gigboard_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// AuthMiddleware - проверка bearer-токена
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				apperrors.HandleError(c, apperrors.ErrTokenExpired)
			} else {
				apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid token"))
			}
			c.Abort()
			return
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.RolesKey, claims.Roles)
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireRole пропускает только пользователей с ролью из токена
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.Get(claimsKey)
		typed, _ := claims.(*auth.Claims)
		if !auth.HasRole(typed, role) {
			apperrors.HandleError(c, apperrors.NewForbiddenError("Access denied: "+role.String()+" role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

// OptionalAuth выставляет пользователя, если токен валиден; без токена запрос идет анонимно
func OptionalAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			if claims, err := tokens.ParseToken(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
				c.Set(contextkeys.UserIDKey, claims.UserID)
				c.Set(contextkeys.RolesKey, claims.Roles)
				c.Set(claimsKey, claims)
				c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
			}
		}
		c.Next()
	}
}
