package models

import (
	"fmt"
	"strings"
)

// Compensation - тип оплаты гига и свободное описание условий
type Compensation struct {
	Type    CompensationType `gorm:"size:16;not null" json:"type"`
	Details string           `gorm:"type:text" json:"details,omitempty"`
}

func NewCompensation(t CompensationType, details string) (Compensation, error) {
	c := Compensation{Type: t, Details: strings.TrimSpace(details)}
	if err := c.Validate(); err != nil {
		return Compensation{}, err
	}
	return c, nil
}

func (c Compensation) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown compensation type %q", c.Type)
	}
	if c.Type == CompensationPaid && c.Details == "" {
		return fmt.Errorf("paid compensation requires details")
	}
	return nil
}
