package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"authd/internal/models"
	"authd/internal/repository"
	"authd/internal/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the gates.
const (
	UserKey          = "currentUser"
	AuthenticatedKey = "authenticated"
)

// ErrMissingToken means the request carried no token in either transport.
var ErrMissingToken = errors.New("missing token")

// CookieName is the session cookie, preferred over the Authorization
// header when both are present.
const CookieName = "token"

// RequireAuth is the hard gate: it extracts and validates the token,
// hydrates the user, and attaches it to the request context, or aborts
// with 401. A token referencing a deleted user is rejected exactly like a
// forged one.
func RequireAuth(tokens *token.Manager, repo repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, tokens, repo)
		if err != nil {
			abortWithAuthError(c, err, logger)
			return
		}

		c.Set(UserKey, user)
		c.Set(AuthenticatedKey, true)
		c.Next()
	}
}

// OptionalAuth is the boolean gate for endpoints that behave differently
// for authenticated and anonymous callers. It never aborts: any failure
// just leaves the request marked unauthenticated.
func OptionalAuth(tokens *token.Manager, repo repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, tokens, repo)
		if err != nil {
			c.Set(AuthenticatedKey, false)
			c.Next()
			return
		}

		c.Set(UserKey, user)
		c.Set(AuthenticatedKey, true)
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(UserKey).(*models.User)
}

// authenticate is the single validation core shared by both gates:
// extract, validate, hydrate.
func authenticate(c *gin.Context, tokens *token.Manager, repo repository.UserRepository) (*models.User, error) {
	tokenString := extractToken(c)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := tokens.Validate(tokenString, time.Now())
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	user, err := repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, err
	}

	return user, nil
}

// extractToken prefers the token cookie and falls back to a Bearer header.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

func abortWithAuthError(c *gin.Context, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "You are not logged in, please provide token",
		})
	case errors.Is(err, token.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "Invalid token",
		})
	default:
		logger.Error("Failed to hydrate user for request", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Internal server error",
		})
	}
}
