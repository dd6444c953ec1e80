package apperrors

import (
	"net/http"
)

/*
Предопределенные доменные ошибки маркетплейса.
Сервисы возвращают их как есть, хендлеры отдают HTTPCode.
*/

// =========================================================================
// Фабрики
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Не найдено
// =========================================================================

var ErrGigNotFound = New(CodeGigNotFound, "gig", "Gig not found", http.StatusNotFound)

var ErrApplicantNotFound = New(CodeApplicantNotFound, "application", "Applicant not found", http.StatusNotFound)

var ErrApplicationNotFound = New(CodeApplicationNotFound, "application", "Application not found", http.StatusNotFound)

var ErrShowcaseNotFound = New(CodeShowcaseNotFound, "showcase", "Showcase not found", http.StatusNotFound)

var ErrUserNotFound = New(CodeUserNotFound, "user", "User not found", http.StatusNotFound)

// =========================================================================
// Авторизация
// =========================================================================

// ErrUnauthorized - пользователь не владелец гига и не участник шоукейса
var ErrUnauthorized = New(CodeUnauthorized, "business_logic", "User is not allowed to act on this resource", http.StatusForbidden)

var ErrSelfApprovalForbidden = New(CodeSelfApprovalForbidden, "showcase", "Creator cannot approve their own showcase", http.StatusForbidden)

var ErrNotTalent = New(CodeNotTalent, "user", "User does not have the talent role", http.StatusForbidden)

var ErrNotContributor = New(CodeNotContributor, "user", "User does not have the contributor role", http.StatusForbidden)

// =========================================================================
// Состояние и инварианты
// =========================================================================

var ErrInvalidStateTransition = New(CodeInvalidStateTransition, "business_logic", "Invalid state transition", http.StatusConflict)

var ErrGigNotAcceptingApplications = New(CodeGigNotAcceptingApplications, "gig", "Gig is not accepting applications", http.StatusConflict)

var ErrGigNotCompleted = New(CodeGigNotCompleted, "gig", "Gig is not completed", http.StatusConflict)

var ErrInvalidMediaCount = New(CodeInvalidMediaCount, "showcase", "Showcase must contain between 3 and 6 media items", http.StatusBadRequest)

var ErrFeedbackRequired = New(CodeFeedbackRequired, "showcase", "A note is required when requesting changes", http.StatusBadRequest)

// =========================================================================
// Вместимость и квоты
// =========================================================================

var ErrGigFull = New(CodeGigFull, "gig", "Gig has reached its maximum number of applicants", http.StatusConflict)

var ErrDuplicateApplication = New(CodeDuplicateApplication, "application", "User has already applied to this gig", http.StatusConflict)

var ErrApplicationQuotaExceeded = New(CodeApplicationQuotaExceeded, "subscription", "Monthly application quota exceeded", http.StatusTooManyRequests)

var ErrShowcaseQuotaExceeded = New(CodeShowcaseQuotaExceeded, "subscription", "Monthly showcase quota exceeded", http.StatusTooManyRequests)

var ErrGigQuotaExceeded = New(CodeGigQuotaExceeded, "subscription", "Monthly gig quota exceeded", http.StatusTooManyRequests)

// ErrConcurrentModification - проиграли compare-and-swap по версии агрегата
var ErrConcurrentModification = New(CodeConcurrentModification, "database", "Resource was modified concurrently, retry the request", http.StatusConflict)

// =========================================================================
// Медиа
// =========================================================================

var ErrUnsupportedMedia = New(CodeValidationFailed, "upload", "Only JPEG, PNG, WebP, GIF, MP4, MOV, WebM and PDF files are accepted", http.StatusUnsupportedMediaType)

var ErrFileTooLarge = New(CodeLimitExceeded, "upload", "File exceeds the maximum allowed size", http.StatusRequestEntityTooLarge)

var ErrStorageLimitExceeded = New(CodeLimitExceeded, "upload", "Storage quota exceeded", http.StatusRequestEntityTooLarge)

// =========================================================================
// Доступ к API
// =========================================================================

var ErrTokenExpired = New(CodeTokenExpired, "auth", "Access token has expired", http.StatusUnauthorized)

var ErrRateLimited = New(CodeRateLimited, "request", "Too many requests, please try again later", http.StatusTooManyRequests)
