package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NewEntityID генерирует идентификатор агрегата
func NewEntityID() string {
	return uuid.NewString()
}

// ValidateEntityID проверяет, что строка является UUID
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid id %q: %w", id, err)
	}
	return nil
}
