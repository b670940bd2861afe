package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.DebugLevel)
	router := gin.New()
	router.Use(RequestMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) {
		assert.NotNil(t, GetLogger(c))
		c.Status(http.StatusOK)
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	t.Run("assigns a request id and logs completion", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

		requestID := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(requestID)
		require.NoError(t, err)

		completed := logs.FilterMessage("request completed").TakeAll()
		require.Len(t, completed, 1)
		assert.Equal(t, requestID, completed[0].ContextMap()["request_id"])
		assert.EqualValues(t, http.StatusOK, completed[0].ContextMap()["status"])
	})

	t.Run("keeps a valid caller request id", func(t *testing.T) {
		incoming := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, incoming)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
	})

	t.Run("server errors are logged at error level", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		failed := logs.FilterMessage("request failed").TakeAll()
		require.Len(t, failed, 1)
		assert.Equal(t, zapcore.ErrorLevel, failed[0].Level)
	})
}

func TestSentryHook_IgnoresLowerLevels(t *testing.T) {
	hook := SentryHook(nil)
	assert.NoError(t, hook(zapcore.Entry{Level: zapcore.InfoLevel, Message: "fine"}))
	assert.NoError(t, hook(zapcore.Entry{Level: zapcore.ErrorLevel, Message: "no hub"}))
}
