package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"steam-giveaway-backend/internal/common/errors"
	"steam-giveaway-backend/internal/common/logger"
)

// RequestID attaches an X-Request-ID to every request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Recovery converts panics into INTERNAL_ERROR responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, appErr))
	})
}

// ErrorResponse is the envelope for error payloads.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// RespondError maps an error to an HTTP response. Non-AppError values
// are reported as internal errors without leaking their message.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("path", c.Request.URL.Path).
			Err(err).
			Msg("Unhandled error")
		appErr = errors.New(errors.ErrCodeInternal, "Internal server error")
	}
	appErr.WithRequestID(getRequestID(c))

	status := httpStatusCode(appErr)
	if status >= http.StatusInternalServerError {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("path", c.Request.URL.Path).
			Err(appErr).
			Msg("Request failed")
	}
	c.JSON(status, newErrorResponse(c, appErr))
}

func newErrorResponse(c *gin.Context, appErr *errors.AppError) ErrorResponse {
	return ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	}
}

func httpStatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeInvalidArgument, errors.ErrCodeInsufficientBalance:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
