package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecoveryAndRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(RequestLogger(logger), RecoveryMiddleware(logger))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	entries := logs.FilterMessage("Incoming Request").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, int64(500), entries[0].ContextMap()["status_code"])
	}
}
