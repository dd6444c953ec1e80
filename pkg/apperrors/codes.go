package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие, не-доменные коды ошибок
const (
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Аутентификация и авторизация
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
)

// Доменные коды маркетплейса
const (
	// Не найдено
	CodeGigNotFound         ErrorCode = "GIG_NOT_FOUND"
	CodeApplicantNotFound   ErrorCode = "APPLICANT_NOT_FOUND"
	CodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	CodeShowcaseNotFound    ErrorCode = "SHOWCASE_NOT_FOUND"
	CodeUserNotFound        ErrorCode = "USER_NOT_FOUND"

	// Права
	CodeSelfApprovalForbidden ErrorCode = "SELF_APPROVAL_FORBIDDEN"
	CodeNotTalent             ErrorCode = "NOT_TALENT"
	CodeNotContributor        ErrorCode = "NOT_CONTRIBUTOR"

	// Состояние
	CodeInvalidStateTransition      ErrorCode = "INVALID_STATE_TRANSITION"
	CodeGigNotAcceptingApplications ErrorCode = "GIG_NOT_ACCEPTING_APPLICATIONS"
	CodeGigNotCompleted             ErrorCode = "GIG_NOT_COMPLETED"
	CodeInvalidMediaCount           ErrorCode = "INVALID_MEDIA_COUNT"
	CodeFeedbackRequired            ErrorCode = "FEEDBACK_REQUIRED"

	// Вместимость и квоты
	CodeGigFull                  ErrorCode = "GIG_FULL"
	CodeDuplicateApplication     ErrorCode = "DUPLICATE_APPLICATION"
	CodeApplicationQuotaExceeded ErrorCode = "APPLICATION_QUOTA_EXCEEDED"
	CodeShowcaseQuotaExceeded    ErrorCode = "SHOWCASE_QUOTA_EXCEEDED"
	CodeGigQuotaExceeded         ErrorCode = "GIG_QUOTA_EXCEEDED"

	CodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
)
