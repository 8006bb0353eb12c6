package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]string

func (s stubValidator) ValidateAccessToken(token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(stubValidator{"good": "u1"}))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})

	tests := []struct {
		header string
		status int
		body   string
	}{
		{"", http.StatusUnauthorized, "Authorization header is required"},
		{"good", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Basic good", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Bearer bad", http.StatusUnauthorized, "Invalid or expired token"},
		{"Bearer good", http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, tt.header)
		assert.Contains(t, w.Body.String(), tt.body)
	}
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRateLimiter(client, quietLogger())

	r := gin.New()
	r.POST("/buy", func(c *gin.Context) {
		c.Set(UserIDKey, c.GetHeader("X-User"))
		c.Next()
	}, limiter.Limit("purchase", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/buy", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("u1").Code)
	assert.Equal(t, http.StatusOK, do("u1").Code)
	w := do("u1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// other users have their own window
	assert.Equal(t, http.StatusOK, do("u2").Code)

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, do("u1").Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	limiter := NewRateLimiter(client, quietLogger())
	mr.Close()

	r := gin.New()
	r.GET("/x", limiter.Limit("x", 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
