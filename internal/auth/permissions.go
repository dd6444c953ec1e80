package auth

import (
	"strings"

	"gigboard_backend/internal/models"
)

// HasRole проверяет роль из токена (CONTRIBUTOR, TALENT, ADMIN)
func HasRole(claims *Claims, role models.Role) bool {
	if claims == nil {
		return false
	}
	for _, r := range claims.Roles {
		if strings.EqualFold(r, role.String()) {
			return true
		}
	}
	return false
}
