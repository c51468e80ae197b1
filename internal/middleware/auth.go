package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkpulse-be/internal/jwt"
)

const (
	// AuthCookieName holds the session token set at login.
	AuthCookieName = "uid"

	UserIDKey = "user_id"
	EmailKey  = "email"
)

// AuthMiddleware requires a valid token from the Authorization header or the
// session cookie. Websocket upgrades may also pass it as ?token=, since
// browsers cannot set headers on them.
func AuthMiddleware(tokens *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil && cookie != "" {
		return cookie
	}
	if isWebsocketUpgrade(c.Request) {
		return c.Query("token")
	}
	return ""
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// GetUserID returns the authenticated user's ID, or "" outside AuthMiddleware.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
