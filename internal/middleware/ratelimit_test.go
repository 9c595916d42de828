package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/tablerank/tablerank/internal/config"
	"github.com/tablerank/tablerank/internal/services"
)

func rateLimitTestService(t *testing.T) *services.RateLimitService {
	t.Helper()

	cfg := &config.Config{}
	cfg.Auth.RateLimit.Enabled = true
	cfg.Auth.RateLimit.Default = 5
	cfg.Auth.RateLimit.Window = time.Minute

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// A client that cannot connect, so every check takes the
	// permissive path.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return services.NewRateLimitService(cfg, logger, client)
}

func rateLimitTestRouter(t *testing.T, sessionID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	router := gin.New()
	if sessionID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(sessionContextKey, sessionID)
		})
	}
	router.Use(RateLimit(rateLimitTestService(t), logger))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func TestRateLimit(t *testing.T) {
	t.Run("request passes when redis is unreachable", func(t *testing.T) {
		router := rateLimitTestRouter(t, "session-1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("request passes without session context", func(t *testing.T) {
		router := rateLimitTestRouter(t, "")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})
}
