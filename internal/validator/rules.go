package validator

import (
	"log"
	"strings"

	"gigboard_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует доменные теги валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правила приложение стартовать не должно
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("compensation_type", validateCompensationType)
	mustRegister("gig_status", validateGigStatus)
	mustRegister("application_status", validateApplicationStatus)
	mustRegister("approval_action", validateApprovalAction)
	mustRegister("subscription_tier", validateSubscriptionTier)
	mustRegister("entity_id", validateEntityID)
	mustRegister("self_role", validateSelfRole)
	mustRegister("handle", validateHandle)
}

// Пустые значения пропускаются: для них есть 'required'

func validateCompensationType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.CompensationType(strings.ToUpper(value)).IsValid()
}

func validateGigStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.GigStatus(strings.ToUpper(value)).IsValid()
}

func validateApplicationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ApplicationStatus(strings.ToUpper(value)).IsValid()
}

func validateApprovalAction(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ApprovalAction(strings.ToLower(value)).IsValid()
}

func validateSubscriptionTier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.SubscriptionTier(strings.ToLower(value)).IsValid()
}

func validateEntityID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.ValidateEntityID(value) == nil
}

// validateSelfRole - роли, которые пользователь может выбрать сам. ADMIN назначается только сидированием.
func validateSelfRole(fl validator.FieldLevel) bool {
	role, err := models.ParseRole(fl.Field().String())
	if err != nil {
		return false
	}
	return role == models.RoleContributor || role == models.RoleTalent
}

// validateHandle: строчные латинские буквы, цифры, '_' и '.'
func validateHandle(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
