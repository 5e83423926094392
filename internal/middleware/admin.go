package middleware

import (
	"crypto/subtle"

	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards routes that mutate admission state, such as a
// manual budget release.
func AdminMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminKey == "" {
			c.Error(apperrors.New(apperrors.ErrForbidden, "admin key not configured", nil))
			c.Abort()
			return
		}
		got := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AdminKey)) != 1 {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
