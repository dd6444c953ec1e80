package models

import "time"

// Unlimited - значение лимита без ограничений
const Unlimited = -1

// TierLimits - месячные лимиты тарифа
type TierLimits struct {
	GigsPerMonth         int `json:"gigs_per_month"`
	ApplicationsPerMonth int `json:"applications_per_month"`
	ShowcasesPerMonth    int `json:"showcases_per_month"`
}

// Allows проверяет, что использование ниже лимита
func (TierLimits) Allows(limit int, used int64) bool {
	return limit == Unlimited || used < int64(limit)
}

var DefaultTierLimits = map[SubscriptionTier]TierLimits{
	TierFree: {GigsPerMonth: 2, ApplicationsPerMonth: 10, ShowcasesPerMonth: 3},
	TierPlus: {GigsPerMonth: 10, ApplicationsPerMonth: 50, ShowcasesPerMonth: 15},
	TierPro:  {GigsPerMonth: Unlimited, ApplicationsPerMonth: Unlimited, ShowcasesPerMonth: Unlimited},
}

// StartOfMonth - начало текущего календарного месяца (UTC)
func StartOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
