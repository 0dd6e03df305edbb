package util

import (
	"context"
	"encoding/json"
	"errors"

	"habitrack/internal/apperr"
)

// IsRetryableError determines if an error is retryable
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	switch {
	case errors.Is(err, apperr.ErrValidation):
		return false, "validation_error"
	case errors.Is(err, apperr.ErrConstraintViolation):
		// 约束冲突 - 不可重试
		return false, "constraint_violation"
	case errors.Is(err, apperr.ErrNotFound):
		return false, "not_found"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		// DB 不可用 - 可重试
		return true, "storage_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return true, "timeout"
	case errors.Is(err, context.Canceled):
		return false, "context_canceled"
	}

	// 默认：未知错误，保守处理 - 不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
