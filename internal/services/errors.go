package services

import (
	"context"
	"errors"

	"gigboard_backend/internal/repositories"
	"gigboard_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// handleRepoError переводит ошибки репозиториев в доменные AppError
func handleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrGigNotFound):
		return apperrors.ErrGigNotFound
	case errors.Is(err, repositories.ErrShowcaseNotFound):
		return apperrors.ErrShowcaseNotFound
	case errors.Is(err, repositories.ErrApplicationNotFound):
		return apperrors.ErrApplicationNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, repositories.ErrNotificationNotFound),
		errors.Is(err, repositories.ErrUploadNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound(err)
	case errors.Is(err, repositories.ErrApplicationDuplicate):
		return apperrors.ErrDuplicateApplication
	case errors.Is(err, repositories.ErrVersionConflict):
		return apperrors.ErrConcurrentModification
	case errors.Is(err, repositories.ErrUserAlreadyExists):
		return apperrors.ErrConflict(err, "user", "User already exists")
	}
	return apperrors.DatabaseError(err)
}

// beginTx открывает транзакцию в контексте запроса
func beginTx(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	return tx, nil
}

// commit фиксирует транзакцию и переводит ошибку
func commit(tx *gorm.DB) error {
	if err := tx.Commit().Error; err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}
