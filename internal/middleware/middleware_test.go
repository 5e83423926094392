package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(mw...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/thing", ok)
	r.POST("/thing", ok)
	r.GET("/fail", func(c *gin.Context) { c.Error(errors.New("boom")) })
	r.GET("/missing", func(c *gin.Context) { c.Error(apperrors.NewNotFound("no such thing")) })
	r.GET("/bad-address", func(c *gin.Context) { c.Error(fmt.Errorf("token: %w", chain.ErrInvalidAddress)) })
	r.GET("/unresolved", func(c *gin.Context) { c.Error(service.ErrSlippageUnresolved) })
	return r
}

func do(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorType {
	t.Helper()
	var body struct {
		Code apperrors.ErrorType `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestErrorHandler(t *testing.T) {
	r := newRouter()

	w := do(r, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrInternal, errorCode(t, w))

	w = do(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ErrNotFound, errorCode(t, w))

	w = do(r, http.MethodGet, "/bad-address", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ErrInvalidRequest, errorCode(t, w))

	w = do(r, http.MethodGet, "/unresolved", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrConfig, errorCode(t, w))

	w = do(r, http.MethodGet, "/thing", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(RateLimitMiddleware(config.RateLimitConfig{QPS: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/thing", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/thing", nil).Code)

	w := do(r, http.MethodGet, "/thing", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.ErrTooManyRequests, errorCode(t, w))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := newRouter(RateLimitMiddleware(config.RateLimitConfig{}))
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/thing", nil).Code)
	}
}

func TestAdminMiddleware(t *testing.T) {
	r := newRouter(AdminMiddleware(config.AuthConfig{AdminKey: "s3cret"}))

	w := do(r, http.MethodGet, "/thing", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.ErrAuthFailed, errorCode(t, w))

	w = do(r, http.MethodGet, "/thing", map[string]string{HeaderAdminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/thing", map[string]string{HeaderAdminKey: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminMiddleware_NoKeyConfigured(t *testing.T) {
	r := newRouter(AdminMiddleware(config.AuthConfig{}))
	w := do(r, http.MethodGet, "/thing", map[string]string{HeaderAdminKey: ""})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrForbidden, errorCode(t, w))
}

func TestReadOnlyMiddleware(t *testing.T) {
	r := newRouter(ReadOnlyMiddleware(true))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/thing", nil).Code)

	w := do(r, http.MethodPost, "/thing", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.ErrReadOnly, errorCode(t, w))

	r = newRouter(ReadOnlyMiddleware(false))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/thing", nil).Code)
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	r := newRouter(MetricsMiddleware())
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/thing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/nowhere", nil).Code)
}
