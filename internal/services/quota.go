package services

import (
	"sort"
	"strings"

	"gigboard_backend/internal/config"
	"gigboard_backend/internal/models"
	"gigboard_backend/internal/repositories"

	"gorm.io/gorm"
)

// QuotaPolicy - месячные лимиты по тарифам
type QuotaPolicy struct {
	limits map[models.SubscriptionTier]models.TierLimits
}

// NewQuotaPolicy берет лимиты по умолчанию и накладывает переопределения из конфига
func NewQuotaPolicy(overrides map[string]config.TierQuota) *QuotaPolicy {
	limits := make(map[models.SubscriptionTier]models.TierLimits, len(models.DefaultTierLimits))
	for tier, l := range models.DefaultTierLimits {
		limits[tier] = l
	}
	for name, q := range overrides {
		tier := models.SubscriptionTier(strings.ToLower(name))
		if !tier.IsValid() {
			continue
		}
		limits[tier] = models.TierLimits{
			GigsPerMonth:         q.GigsPerMonth,
			ApplicationsPerMonth: q.ApplicationsPerMonth,
			ShowcasesPerMonth:    q.ShowcasesPerMonth,
		}
	}
	return &QuotaPolicy{limits: limits}
}

// For возвращает лимиты тарифа; неизвестный тариф считается бесплатным
func (p *QuotaPolicy) For(tier models.SubscriptionTier) models.TierLimits {
	if l, ok := p.limits[tier]; ok {
		return l
	}
	return p.limits[models.TierFree]
}

// holdQuota блокирует профиль, чья квота сейчас будет посчитана, и поднимает его версию.
// Параллельная транзакция за той же квотой ждет блокировку (postgres, mysql)
// или получает конфликт версии, поэтому подсчет и вставка не разъезжаются.
// Ошибки репозитория возвращаются как есть.
func holdQuota(tx *gorm.DB, users repositories.UserRepository, userID string) (*models.UserProfile, error) {
	user, err := users.FindByUserIDForUpdate(tx, userID)
	if err != nil {
		return nil, err
	}
	if err := users.Touch(tx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// holdQuotas - то же для нескольких профилей. Блокировки берутся в порядке user_id.
func holdQuotas(tx *gorm.DB, users repositories.UserRepository, userIDs []string) (map[string]*models.UserProfile, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	held := make(map[string]*models.UserProfile, len(ids))
	for _, id := range ids {
		if _, ok := held[id]; ok {
			continue
		}
		user, err := holdQuota(tx, users, id)
		if err != nil {
			return nil, err
		}
		held[id] = user
	}
	return held, nil
}
