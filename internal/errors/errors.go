package errors

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AppError is the error type shared by handlers, the notifier and the funnel.
// Users never see its text: the bot stays silent on internal failures.
type AppError struct {
	Code      string
	Message   string
	Severity  Severity
	Retryable bool

	// RetryAfter is the wait the remote side asked for, zero when unknown.
	RetryAfter time.Duration

	cause error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// WithRetryAfter records the wait demanded by the remote side and returns e.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	if e != nil && d > 0 {
		e.RetryAfter = d
	}
	return e
}

// NewValidationError marks an update the bot cannot act on, such as one
// without a sender.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:      "E100",
		Message:   msg,
		Severity:  SeverityLow,
		Retryable: false,
	}
}

// NewExternalAPIError wraps a failure of a remote dependency (Telegram, AMQP).
// retryable marks transient failures that WithRetry may repeat.
func NewExternalAPIError(apiName string, cause error, retryable bool) *AppError {
	return &AppError{
		Code:      "E300",
		Message:   fmt.Sprintf("external API error: %s", apiName),
		Severity:  SeverityMedium,
		Retryable: retryable,
		cause:     cause,
	}
}

func NewPanicError(recovered any) *AppError {
	return &AppError{
		Code:      "E900",
		Message:   fmt.Sprintf("panic recovered: %v", recovered),
		Severity:  SeverityCritical,
		Retryable: false,
	}
}
