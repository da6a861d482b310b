package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeInvalidInput = "E100"
	CodeNotFound     = "E110"
	CodeForbidden    = "E120"
	CodeDatabase     = "E200"
	CodeExternalAPI  = "E300"
	CodeDelivery     = "E310"
	CodeState        = "E400"
	CodeRateLimit    = "E500"
)

// Sentinels for errors.Is checks; they match any AppError with the same code.
var (
	ErrInvalidInput = &AppError{Code: CodeInvalidInput}
	ErrNotFound     = &AppError{Code: CodeNotFound}
	ErrForbidden    = &AppError{Code: CodeForbidden}
	ErrExternalAPI  = &AppError{Code: CodeExternalAPI}
	ErrDelivery     = &AppError{Code: CodeDelivery}
	ErrState        = &AppError{Code: CodeState}
	ErrRateLimit    = &AppError{Code: CodeRateLimit}
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.Message == "" {
		return e.Code
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is matches by code so callers can compare against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// NewInvalidInputError reports malformed or out-of-range user input.
func NewInvalidInputError(msg string) *AppError {
	return &AppError{
		Code:        CodeInvalidInput,
		Message:     msg,
		UserMessage: fmt.Sprintf("Неверный формат данных. %s", msg),
		Severity:    SeverityLow,
	}
}

// NewNotFoundError reports a missing entity such as a client, trainer or invite code.
func NewNotFoundError(entity string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", entity),
		UserMessage: "Ничего не найдено. Проверьте номер или код",
		Severity:    SeverityLow,
	}
}

// NewForbiddenError reports an ownership violation. The user message never names the target.
func NewForbiddenError(msg string) *AppError {
	return &AppError{
		Code:        CodeForbidden,
		Message:     msg,
		UserMessage: "Недостаточно прав для этого действия",
		Severity:    SeverityMedium,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Сервис временно недоступен",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDeliveryError wraps a failed outbound notification. It is logged, never shown to the initiator.
func NewDeliveryError(chatID int64, retryable bool, cause error) *AppError {
	return &AppError{
		Code:      CodeDelivery,
		Message:   fmt.Sprintf("Delivery to chat %d failed", chatID),
		Severity:  SeverityLow,
		Retryable: retryable,
		cause:     cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", retryAfter),
		Severity:    SeverityLow,
	}
}
