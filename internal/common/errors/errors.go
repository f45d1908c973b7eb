// Package errors provides standardized error handling for the lending core services.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidApplicationData ErrorCode = "INVALID_APPLICATION_DATA"
	ErrCodeInvalidProductData     ErrorCode = "INVALID_PRODUCT_DATA"
	ErrCodeProductQueryFailed     ErrorCode = "PRODUCT_QUERY_FAILED"
	ErrCodeApplicationNotFound    ErrorCode = "APPLICATION_NOT_FOUND"

	ErrCodeMailboxNotFound         ErrorCode = "MAILBOX_NOT_FOUND"
	ErrCodeExtensionNotFound       ErrorCode = "EXTENSION_NOT_FOUND"
	ErrCodeExtensionSpaceExhausted ErrorCode = "EXTENSION_SPACE_EXHAUSTED"
	ErrCodeVoicemailNotFound       ErrorCode = "VOICEMAIL_NOT_FOUND"
	ErrCodeVoicemailStoreFailed    ErrorCode = "VOICEMAIL_STORE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEventPublishFailed     ErrorCode = "EVENT_PUBLISH_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewInvalidApplicationDataError creates a non-retryable scoring input error.
func NewInvalidApplicationDataError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidApplicationData,
		Message:   "Loan application data failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidProductDataError creates a non-retryable product rule error.
func NewInvalidProductDataError(productID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidProductData,
		Message:   "Lender product rules failed validation",
		Details:   fmt.Sprintf("productId: %s, %s", productID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProductQueryFailedError creates a retryable catalog read error.
func NewProductQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProductQueryFailed,
		Message:   "Lender product catalog query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Loan application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMailboxNotFoundError creates a non-retryable mailbox lookup error.
func NewMailboxNotFoundError(mailboxID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailboxNotFound,
		Message:   "Mailbox not found",
		Details:   fmt.Sprintf("mailboxId: %s", mailboxID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtensionNotFoundError creates a non-retryable directory lookup error.
func NewExtensionNotFoundError(extension string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtensionNotFound,
		Message:   "Extension not registered",
		Details:   fmt.Sprintf("extension: %s", extension),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtensionSpaceExhaustedError signals that no free extension remains in [200,999].
func NewExtensionSpaceExhaustedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeExtensionSpaceExhausted,
		Message:   "No free extension available",
		Details:   "allocation range [200,999] is fully assigned",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVoicemailNotFoundError creates a non-retryable voicemail lookup error.
func NewVoicemailNotFoundError(voicemailID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVoicemailNotFound,
		Message:   "Voicemail not found",
		Details:   fmt.Sprintf("voicemailId: %s", voicemailID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVoicemailStoreFailedError creates a retryable persistence error.
func NewVoicemailStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVoicemailStoreFailed,
		Message:   "Voicemail persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventPublishFailedError creates a retryable event publish error.
func NewEventPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventPublishFailed,
		Message:   "Event publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProductQueryFailed,
		ErrCodeVoicemailStoreFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeEventPublishFailed,
		ErrCodeDatabaseConnectionFailed:
		return 3

	case ErrCodeQueryTimeout:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "APPLICATION") || strings.Contains(codeStr, "PRODUCT"):
		return "MATCHING"
	case strings.Contains(codeStr, "MAILBOX") || strings.Contains(codeStr, "EXTENSION") || strings.Contains(codeStr, "VOICEMAIL"):
		return "VOICE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "EVENT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	default:
		return "OTHER"
	}
}
