package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gigboard_backend/pkg/apperrors"
)

// Role - один бит в наборе ролей
type Role uint8

const (
	RoleContributor Role = 1 << iota
	RoleTalent
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleContributor: "CONTRIBUTOR",
	RoleTalent:      "TALENT",
	RoleAdmin:       "ADMIN",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ROLE(%d)", uint8(r))
}

// ParseRole разбирает имя роли без учета регистра
func ParseRole(name string) (Role, error) {
	for r, n := range roleNames {
		if strings.EqualFold(n, name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// RoleSet - набор ролей (не взаимоисключающих), хранится битовой маской
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= RoleSet(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	return s&RoleSet(r) != 0
}

func (s RoleSet) With(r Role) RoleSet {
	return s | RoleSet(r)
}

func (s RoleSet) Without(r Role) RoleSet {
	return s &^ RoleSet(r)
}

func (s RoleSet) Names() []string {
	names := make([]string, 0, len(roleNames))
	for r, n := range roleNames {
		if s.Has(r) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set RoleSet
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return err
		}
		set = set.With(r)
	}
	*s = set
	return nil
}

// UserProfile - участник маркетплейса. UserID - идентификатор из провайдера
// идентичности, на него ссылаются гиги, заявки и шоукейсы.
type UserProfile struct {
	BaseModel
	UserID           string           `gorm:"size:64;not null;uniqueIndex" json:"user_id"`
	Handle           string           `gorm:"size:50;not null;uniqueIndex" json:"handle"`
	DisplayName      string           `gorm:"size:120" json:"display_name"`
	Email            string           `gorm:"size:255" json:"email,omitempty"`
	Phone            string           `gorm:"size:32" json:"phone,omitempty"`
	Roles            RoleSet          `gorm:"not null;default:0" json:"roles"`
	SubscriptionTier SubscriptionTier `gorm:"size:16;not null;default:'free'" json:"subscription_tier"`
	Version          int              `gorm:"not null;default:0" json:"version"`
}

func (u *UserProfile) Has(r Role) bool {
	return u.Roles.Has(r)
}

// CanCreateGig - роль CONTRIBUTOR и месячная квота гигов
func (u *UserProfile) CanCreateGig(limits TierLimits, createdThisMonth int64) error {
	if !u.Has(RoleContributor) {
		return apperrors.ErrNotContributor
	}
	if !limits.Allows(limits.GigsPerMonth, createdThisMonth) {
		return apperrors.ErrGigQuotaExceeded
	}
	return nil
}

// CanApply - роль TALENT и месячная квота заявок
func (u *UserProfile) CanApply(limits TierLimits, appliedThisMonth int64) error {
	if !u.Has(RoleTalent) {
		return apperrors.ErrNotTalent
	}
	if !limits.Allows(limits.ApplicationsPerMonth, appliedThisMonth) {
		return apperrors.ErrApplicationQuotaExceeded
	}
	return nil
}

// CanCreateShowcase - шоукейсы создают контрибьюторы, участвуют таланты;
// квота считается по публичным шоукейсам за месяц
func (u *UserProfile) CanCreateShowcase(limits TierLimits, publicThisMonth int64) error {
	if !u.Has(RoleContributor) && !u.Has(RoleTalent) {
		return apperrors.ErrNotContributor
	}
	if !limits.Allows(limits.ShowcasesPerMonth, publicThisMonth) {
		return apperrors.ErrShowcaseQuotaExceeded
	}
	return nil
}
