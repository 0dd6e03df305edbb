package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitrack/internal/apperr"
)

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConstraintViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Server-side failures are logged
// and their details hidden.
func respondError(c *gin.Context, log *zap.Logger, action string, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "storage unavailable, retry later"
	case http.StatusInternalServerError:
		msg = "internal error"
	}

	if status >= http.StatusInternalServerError {
		log.Error(action+": failed",
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		log.Warn(action+": rejected",
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": msg})
}
