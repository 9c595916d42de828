package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tablerank/tablerank/internal/config"
)

const (
	SessionCookieName = "tablerank_session"
	sessionContextKey = "session_id"
)

type sessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Session guarantees every request carries a session ID. A valid signed
// cookie keeps its ID, so variant assignment stays sticky across
// requests; anything else gets a fresh ID and a fresh cookie. Sessions
// identify, they do not authenticate, so the request always proceeds.
func Session(cfg *config.Config, logger *logrus.Logger) gin.HandlerFunc {
	secret := []byte(cfg.Auth.JWTSecret)
	ttl := cfg.Auth.TokenTTL

	return func(c *gin.Context) {
		if cookie, err := c.Cookie(SessionCookieName); err == nil {
			if id, err := parseSessionToken(cookie, secret); err == nil {
				c.Set(sessionContextKey, id)
				c.Next()
				return
			} else {
				logger.WithError(err).Debug("Rejected session cookie")
			}
		}

		id := uuid.NewString()
		token, err := signSessionToken(id, secret, ttl)
		if err != nil {
			logger.WithError(err).Error("Failed to sign session token")
			// Still serve the request; stickiness is lost for this client.
			c.Set(sessionContextKey, id)
			c.Next()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, token, int(ttl.Seconds()), "/", "", false, true)
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

func signSessionToken(sessionID string, secret []byte, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseSessionToken(tokenString string, secret []byte) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.SessionID, nil
}

// SessionID returns the request's session ID set by Session.
func SessionID(c *gin.Context) string {
	if id, ok := c.Get(sessionContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
