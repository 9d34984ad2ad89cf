package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage"
)

const currentUserKey = "currentUser"

// TokenValidator resolves a session token to a user id.
type TokenValidator interface {
	Validate(token string) (primitive.ObjectID, error)
}

// UserFinder loads the latest user record for a token subject.
type UserFinder interface {
	FindUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// AuthMiddleware verifies the bearer token and loads the user it names. The
// role always comes from the store, never from the token.
func AuthMiddleware(tokens TokenValidator, users UserFinder, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		userID, err := tokens.Validate(strings.TrimSpace(tokenString))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			logger.Error().Err(err).Str("user_id", userID.Hex()).Msg("auth: load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient role"})
	}
}

// CurrentUser returns the user attached by AuthMiddleware.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
