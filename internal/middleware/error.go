package middleware

import (
	"errors"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error pushed with c.Error. Domain sentinels
// that reach it unwrapped get their own status instead of a blanket 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := toAppError(c.Errors.Last().Err)
		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		c.JSON(appErr.HTTPStatus, appErr)
	}
}

func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, chain.ErrInvalidAddress), errors.Is(err, chain.ErrUnsupportedChain):
		return apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err)
	case errors.Is(err, service.ErrSlippageUnresolved):
		return apperrors.New(apperrors.ErrConfig, err.Error(), err)
	case errors.Is(err, service.ErrPriceNotFound):
		return apperrors.New(apperrors.ErrNotFound, err.Error(), err)
	default:
		return apperrors.Wrap(err)
	}
}
