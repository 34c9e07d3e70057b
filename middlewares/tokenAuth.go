package middlewares

import (
	"ClinicHub/models"
	"ClinicHub/utils"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// contextKey defines a custom context key type to store the session in the request context.
type contextKey string

const (
	sessionKey contextKey = "session"
	userIDKey             = "user_id"
)

// TokenAuthMiddleware validates the access token from the Authorization
// header (or the accessToken query parameter, which WebSocket clients use)
// and stores the session on the request.
func TokenAuthMiddleware(tokens *utils.TokenMaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			HttpError(c, "not authenticated", http.StatusUnauthorized, err)
			return
		}

		session := claims.Session()
		c.Set(string(sessionKey), session)
		c.Set(userIDKey, session.UserID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), sessionKey, session))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("accessToken")
}

// RoleAuthMiddleware restricts access to sessions holding one of roles.
func RoleAuthMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient privileges"})
	}
}

// SessionFromGin returns the session set by TokenAuthMiddleware.
func SessionFromGin(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(string(sessionKey))
	if !ok {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}

// SessionFromContext retrieves the session from a request context.
func SessionFromContext(ctx context.Context) (models.Session, error) {
	session, ok := ctx.Value(sessionKey).(models.Session)
	if !ok {
		return models.Session{}, errors.New("session not found in context")
	}
	return session, nil
}
