package middleware

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-scheduler/internal/handler"
	"github.com/jwalitptl/clinic-scheduler/internal/lock"
	"github.com/jwalitptl/clinic-scheduler/pkg/errors"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Application errors keep their status and details; anything else is logged
// and reported without internals.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := c.GetString(ContextRequestID)
		err := c.Errors.Last().Err

		if appErr, ok := errors.As(err); ok && appErr.Code != errors.ErrInternal {
			c.JSON(appErr.HTTPStatus(), handler.NewAppErrorResponse(appErr, traceID))
			return
		}

		status, message := http.StatusInternalServerError, "internal server error"
		switch {
		case stderrors.Is(err, context.DeadlineExceeded):
			status, message = http.StatusGatewayTimeout, "request timeout"
		case stderrors.Is(err, lock.ErrLockNotAcquired):
			status, message = http.StatusServiceUnavailable, "appointment is busy, try again"
		case stderrors.Is(err, context.Canceled):
			status, message = 499, "request canceled"
		}

		log.WithContext(c.Request.Context()).Error(err, "Request error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"client_ip", c.ClientIP(),
		)
		c.JSON(status, handler.NewAppErrorResponse(&errors.AppError{Message: message}, traceID))
	}
}
