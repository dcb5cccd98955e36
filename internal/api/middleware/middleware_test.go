package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(a *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/secure", a.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRequireAuth_DisabledPassesThrough(t *testing.T) {
	r := newAuthRouter(NewAuthMiddleware("", "ticket-spool"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuthMiddleware("secret", "ticket-spool")
	r := newAuthRouter(auth)

	token, err := auth.GenerateToken("kiosk-1", time.Hour)
	require.NoError(t, err)

	other, err := NewAuthMiddleware("other", "ticket-spool").GenerateToken("kiosk-1", time.Hour)
	require.NoError(t, err)

	expired, err := auth.GenerateToken("kiosk-1", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"wrong secret", "Bearer " + other, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"not bearer", "Basic " + token, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTokenHandler(t *testing.T) {
	hash, err := HashKey("kiosk-key")
	require.NoError(t, err)

	auth := NewAuthMiddleware("secret", "ticket-spool").WithKioskKey(hash, time.Hour)
	r := newAuthRouter(auth)
	r.POST("/auth/token", auth.TokenHandler)

	exchange := func(body string) (*httptest.ResponseRecorder, TokenResponse) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	w, resp := exchange(`{"kiosk": "apm-1", "key": "wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	w, _ = exchange(`{"kiosk": "apm-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = exchange(`{"kiosk": "apm-1", "key": "kiosk-key"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenHandler_DisabledWithoutKey(t *testing.T) {
	auth := NewAuthMiddleware("secret", "ticket-spool")
	r := gin.New()
	r.POST("/auth/token", auth.TokenHandler)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"kiosk":"a","key":"b"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoggerAndRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(RequestID(), Logger(logger), Recovery(logger))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) {
		assert.NotNil(t, RequestLogger(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	assert.Equal(t, 2, logs.FilterMessage("http request").Len())
}
